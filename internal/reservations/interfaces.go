package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
)

// Repository defines persistence operations for reservation rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateReservation(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error)
	FindReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindReservationByCode(ctx context.Context, code string) (*models.Reservation, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	UpdateReservation(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListActiveDueBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Reservation, error)
}
