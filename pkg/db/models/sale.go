package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
)

// Sale records the transfer of a lot to a client. Balance is the amount
// still owed; it only ever decreases, and a completed sale has balance zero.
type Sale struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LotID             uuid.UUID         `gorm:"column:lot_id;type:uuid;not null;index"`
	ClientID          uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index"`
	AgentID           uuid.UUID         `gorm:"column:agent_id;type:uuid;not null"`
	ReservationID     *uuid.UUID        `gorm:"column:reservation_id;type:uuid"`
	Status            enums.SaleStatus  `gorm:"column:status;type:sale_status;not null;default:'in_progress'"`
	PaymentPlan       enums.PaymentPlan `gorm:"column:payment_plan;type:payment_plan;not null"`
	TotalPrice        decimal.Decimal   `gorm:"column:total_price;type:numeric(14,2);not null"`
	Balance           decimal.Decimal   `gorm:"column:balance;type:numeric(14,2);not null"`
	Currency          enums.Currency    `gorm:"column:currency;type:text;not null;default:'PEN'"`
	Installments      *int              `gorm:"column:installments"`
	InstallmentAmount *decimal.Decimal  `gorm:"column:installment_amount;type:numeric(14,2)"`
	Notes             *string           `gorm:"column:notes"`
	CompletedAt       *time.Time        `gorm:"column:completed_at"`
	VoidedAt          *time.Time        `gorm:"column:voided_at"`
	Lot               *Lot              `gorm:"foreignKey:LotID"`
	Client            *Client           `gorm:"foreignKey:ClientID"`
	Agent             *Agent            `gorm:"foreignKey:AgentID"`
	Reservation       *Reservation      `gorm:"foreignKey:ReservationID"`
	Payments          []Payment         `gorm:"foreignKey:SaleID"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
