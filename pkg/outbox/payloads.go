package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationEventPayload is published for reservation lifecycle events.
type ReservationEventPayload struct {
	ReservationID   uuid.UUID       `json:"reservationId"`
	ReservationCode string          `json:"reservationCode"`
	LotID           uuid.UUID       `json:"lotId"`
	ClientID        uuid.UUID       `json:"clientId"`
	AgentID         uuid.UUID       `json:"agentId"`
	Deposit         decimal.Decimal `json:"deposit"`
	Currency        string          `json:"currency"`
	DueAt           time.Time       `json:"dueAt"`
}

// SaleEventPayload is published when a sale opens, completes or is voided.
type SaleEventPayload struct {
	SaleID      uuid.UUID       `json:"saleId"`
	LotID       uuid.UUID       `json:"lotId"`
	ClientID    uuid.UUID       `json:"clientId"`
	AgentID     uuid.UUID       `json:"agentId"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	PaymentPlan string          `json:"paymentPlan"`
}

// PaymentEventPayload is published when a payment is recorded against a sale.
type PaymentEventPayload struct {
	PaymentID uuid.UUID       `json:"paymentId"`
	SaleID    uuid.UUID       `json:"saleId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	PaidAt    time.Time       `json:"paidAt"`
}
