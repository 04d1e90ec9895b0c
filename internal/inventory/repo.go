package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	"github.com/rcastillo-dev/terralote-backend/pkg/pagination"
)

// ErrVersionConflict reports a lost compare-and-set race: the lot's status or
// version changed between the caller's read and its write.
var ErrVersionConflict = errors.New("lot status version conflict")

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLot(ctx context.Context, lot *models.Lot) (*models.Lot, error) {
	if err := r.db.WithContext(ctx).Create(lot).Error; err != nil {
		return nil, err
	}
	return lot, nil
}

func (r *repository) CreateLots(ctx context.Context, lots []models.Lot) error {
	if len(lots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lots).Error
}

func (r *repository) FindLot(ctx context.Context, lotID uuid.UUID) (*models.Lot, error) {
	var lot models.Lot
	err := r.db.WithContext(ctx).
		Where("id = ?", lotID).
		First(&lot).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *repository) FindLotByProjectAndCode(ctx context.Context, projectID uuid.UUID, code string) (*models.Lot, error) {
	var lot models.Lot
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND code = ?", projectID, code).
		First(&lot).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *repository) ListProjectLots(ctx context.Context, projectID uuid.UUID, params pagination.Params, filters LotFilters) (*LotList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("project_id = ?", projectID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Block != nil {
		query = query.Where("block = ?", *filters.Block)
	}
	if filters.Stage != nil {
		query = query.Where("stage = ?", *filters.Stage)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var lots []models.Lot
	err = query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit + 1).
		Find(&lots).Error
	if err != nil {
		return nil, err
	}

	list := &LotList{Lots: lots}
	if len(lots) > limit {
		list.Lots = lots[:limit]
		last := list.Lots[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (r *repository) UpdateLotDetails(ctx context.Context, lotID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	// Status and version never travel through the generic update path.
	delete(updates, "status")
	delete(updates, "version")
	return r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("id = ?", lotID).
		Updates(updates).Error
}

// CompareAndSetStatus transitions a lot's status with a single conditional
// UPDATE. The row is matched on id, expected status and expected version, and
// the version is bumped atomically; zero rows affected means the caller lost
// the race and gets ErrVersionConflict.
func (r *repository) CompareAndSetStatus(ctx context.Context, lotID uuid.UUID, expectedStatus enums.LotStatus, expectedVersion int64, next enums.LotStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("id = ? AND status = ? AND version = ?", lotID, expectedStatus, expectedVersion).
		Updates(map[string]any{
			"status":  next,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *repository) FindActiveReservation(ctx context.Context, lotID uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Where("lot_id = ? AND status = ?", lotID, enums.ReservationStatusActive).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindOpenSale(ctx context.Context, lotID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Where("lot_id = ? AND status IN ?", lotID, []enums.SaleStatus{enums.SaleStatusInProgress, enums.SaleStatusCompleted}).
		Order("created_at DESC").
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

func (r *repository) DeleteLot(ctx context.Context, lotID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("id = ?", lotID).
		Update("deleted_at", time.Now()).Error
}

func (r *repository) CountLotReferences(ctx context.Context, lotID uuid.UUID) (int64, error) {
	var reservations int64
	if err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("lot_id = ?", lotID).
		Count(&reservations).Error; err != nil {
		return 0, err
	}
	var sales int64
	if err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("lot_id = ?", lotID).
		Count(&sales).Error; err != nil {
		return 0, err
	}
	return reservations + sales, nil
}
