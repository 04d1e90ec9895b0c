package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a land development an inventory of lots belongs to.
type Project struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Location    *string    `gorm:"column:location"`
	Description *string    `gorm:"column:description"`
	TotalLots   int        `gorm:"column:total_lots;not null;default:0"`
	Active      bool       `gorm:"column:active;not null;default:true"`
	Lots        []Lot      `gorm:"foreignKey:ProjectID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   *time.Time `gorm:"column:deleted_at;index"`
}
