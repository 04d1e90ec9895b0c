package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	"github.com/rcastillo-dev/terralote-backend/pkg/pagination"
)

// Repository defines persistence operations for the lot inventory.
//
// CompareAndSetStatus is the only write path for lot status. Every caller
// presents the status and version it read; a zero-row update means another
// writer won and the caller must treat its read as stale.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLot(ctx context.Context, lot *models.Lot) (*models.Lot, error)
	CreateLots(ctx context.Context, lots []models.Lot) error
	FindLot(ctx context.Context, lotID uuid.UUID) (*models.Lot, error)
	FindLotByProjectAndCode(ctx context.Context, projectID uuid.UUID, code string) (*models.Lot, error)
	ListProjectLots(ctx context.Context, projectID uuid.UUID, params pagination.Params, filters LotFilters) (*LotList, error)
	UpdateLotDetails(ctx context.Context, lotID uuid.UUID, updates map[string]any) error
	CompareAndSetStatus(ctx context.Context, lotID uuid.UUID, expectedStatus enums.LotStatus, expectedVersion int64, next enums.LotStatus) error
	CountLotReferences(ctx context.Context, lotID uuid.UUID) (int64, error)
	FindActiveReservation(ctx context.Context, lotID uuid.UUID) (*models.Reservation, error)
	FindOpenSale(ctx context.Context, lotID uuid.UUID) (*models.Sale, error)
	DeleteLot(ctx context.Context, lotID uuid.UUID) error
}
