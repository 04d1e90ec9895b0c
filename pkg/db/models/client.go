package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is a prospective or actual buyer.
type Client struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FirstName  string     `gorm:"column:first_name;not null"`
	LastName   string     `gorm:"column:last_name;not null"`
	DocumentID string     `gorm:"column:document_id;not null;uniqueIndex"`
	Email      *string    `gorm:"column:email"`
	Phone      *string    `gorm:"column:phone"`
	Address    *string    `gorm:"column:address"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt  *time.Time `gorm:"column:deleted_at;index"`
}
