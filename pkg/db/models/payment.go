package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
)

// Payment is a single collection against a sale's outstanding balance.
// Rows are append-only; corrections happen through new rows, never edits.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID      uuid.UUID           `gorm:"column:sale_id;type:uuid;not null;index"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency    enums.Currency      `gorm:"column:currency;type:text;not null;default:'PEN'"`
	Method      enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Reference   *string             `gorm:"column:reference"`
	Installment *int                `gorm:"column:installment"`
	Notes       *string             `gorm:"column:notes"`
	PaidAt      time.Time           `gorm:"column:paid_at;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
