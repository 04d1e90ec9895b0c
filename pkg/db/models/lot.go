package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	"github.com/rcastillo-dev/terralote-backend/pkg/types"
)

// Lot is the unit of inventory. Status transitions are guarded by the
// conditional update in the inventory repository: every writer must present
// the version it read, and a mismatch means another writer got there first.
type Lot struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID uuid.UUID       `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_lots_project_code,priority:1"`
	Code      string          `gorm:"column:code;not null;uniqueIndex:idx_lots_project_code,priority:2"`
	Block     *string         `gorm:"column:block"`
	Stage     *string         `gorm:"column:stage"`
	AreaM2    decimal.Decimal `gorm:"column:area_m2;type:numeric(10,2);not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	Currency  enums.Currency  `gorm:"column:currency;type:text;not null;default:'PEN'"`
	Status    enums.LotStatus `gorm:"column:status;type:lot_status;not null;default:'available'"`
	Version   int64           `gorm:"column:version;not null;default:0"`
	Metadata  *types.JSONMap  `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt *time.Time      `gorm:"column:deleted_at;index"`
}
