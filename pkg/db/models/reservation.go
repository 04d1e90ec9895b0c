package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
)

// Reservation is a time-boxed hold an agent places on a lot for a client.
// An active reservation is the only thing that keeps a lot in reserved
// status; terminal reservations never come back.
type Reservation struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string                  `gorm:"column:code;not null;uniqueIndex"`
	LotID         uuid.UUID               `gorm:"column:lot_id;type:uuid;not null;index"`
	ClientID      uuid.UUID               `gorm:"column:client_id;type:uuid;not null;index"`
	AgentID       uuid.UUID               `gorm:"column:agent_id;type:uuid;not null"`
	Status        enums.ReservationStatus `gorm:"column:status;type:reservation_status;not null;default:'active'"`
	ProposedPrice decimal.Decimal         `gorm:"column:proposed_price;type:numeric(14,2);not null;default:0"`
	Deposit       decimal.Decimal         `gorm:"column:deposit;type:numeric(14,2);not null;default:0"`
	Currency      enums.Currency          `gorm:"column:currency;type:text;not null;default:'PEN'"`
	DepositMethod *enums.PaymentMethod    `gorm:"column:deposit_method;type:payment_method"`
	Installments  *int                    `gorm:"column:installments"`
	CancelReason  *string                 `gorm:"column:cancel_reason"`
	Notes         *string                 `gorm:"column:notes"`
	DueAt         time.Time               `gorm:"column:due_at;not null;index"`
	CancelledAt   *time.Time              `gorm:"column:cancelled_at"`
	ExpiredAt     *time.Time              `gorm:"column:expired_at"`
	ConvertedAt   *time.Time              `gorm:"column:converted_at"`
	Lot           *Lot                    `gorm:"foreignKey:LotID"`
	Client        *Client                 `gorm:"foreignKey:ClientID"`
	Agent         *Agent                  `gorm:"foreignKey:AgentID"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
