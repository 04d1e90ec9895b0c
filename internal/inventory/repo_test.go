package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	"github.com/rcastillo-dev/terralote-backend/pkg/pagination"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	lots := `
CREATE TABLE IF NOT EXISTS lots (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  code TEXT NOT NULL,
  block TEXT,
  stage TEXT,
  area_m2 NUMERIC NOT NULL,
  price NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'PEN',
  status TEXT NOT NULL DEFAULT 'available',
  version INTEGER NOT NULL DEFAULT 0,
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`
	reservations := `
CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  lot_id TEXT NOT NULL,
  client_id TEXT NOT NULL,
  agent_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  proposed_price NUMERIC NOT NULL DEFAULT 0,
  deposit NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'PEN',
  deposit_method TEXT,
  installments INTEGER,
  cancel_reason TEXT,
  notes TEXT,
  due_at DATETIME NOT NULL,
  cancelled_at DATETIME,
  expired_at DATETIME,
  converted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	sales := `
CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  lot_id TEXT NOT NULL,
  client_id TEXT NOT NULL,
  agent_id TEXT NOT NULL,
  reservation_id TEXT,
  status TEXT NOT NULL DEFAULT 'in_progress',
  payment_plan TEXT NOT NULL,
  total_price NUMERIC NOT NULL,
  balance NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'PEN',
  installments INTEGER,
  installment_amount NUMERIC,
  notes TEXT,
  completed_at DATETIME,
  voided_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(lots).Error)
	require.NoError(t, db.Exec(reservations).Error)
	require.NoError(t, db.Exec(sales).Error)
	return db
}

func newLot(t *testing.T, db *gorm.DB, projectID uuid.UUID, code string, status enums.LotStatus) *models.Lot {
	t.Helper()

	lot := &models.Lot{
		ID:        uuid.New(),
		ProjectID: projectID,
		Code:      code,
		AreaM2:    decimal.NewFromInt(120),
		Price:     decimal.NewFromInt(45000),
		Currency:  enums.CurrencyPEN,
		Status:    status,
		Version:   0,
	}
	require.NoError(t, db.Create(lot).Error)
	return lot
}

func TestCompareAndSetStatusTransitions(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	lot := newLot(t, db, uuid.New(), "MZ-A-01", enums.LotStatusAvailable)

	err := repo.CompareAndSetStatus(ctx, lot.ID, enums.LotStatusAvailable, 0, enums.LotStatusReserved)
	require.NoError(t, err)

	reloaded, err := repo.FindLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LotStatusReserved, reloaded.Status)
	assert.Equal(t, int64(1), reloaded.Version)
}

func TestCompareAndSetStatusStaleVersion(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	lot := newLot(t, db, uuid.New(), "MZ-A-02", enums.LotStatusAvailable)

	require.NoError(t, repo.CompareAndSetStatus(ctx, lot.ID, enums.LotStatusAvailable, 0, enums.LotStatusReserved))

	// A second writer still holding version 0 must lose.
	err := repo.CompareAndSetStatus(ctx, lot.ID, enums.LotStatusAvailable, 0, enums.LotStatusReserved)
	assert.ErrorIs(t, err, ErrVersionConflict)

	reloaded, err := repo.FindLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LotStatusReserved, reloaded.Status)
	assert.Equal(t, int64(1), reloaded.Version)
}

func TestCompareAndSetStatusWrongStatus(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	lot := newLot(t, db, uuid.New(), "MZ-A-03", enums.LotStatusSold)

	err := repo.CompareAndSetStatus(ctx, lot.ID, enums.LotStatusAvailable, 0, enums.LotStatusReserved)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestUpdateLotDetailsNeverTouchesStatus(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	lot := newLot(t, db, uuid.New(), "MZ-A-04", enums.LotStatusAvailable)

	err := repo.UpdateLotDetails(ctx, lot.ID, map[string]any{
		"price":   decimal.NewFromInt(50000),
		"status":  enums.LotStatusSold,
		"version": int64(99),
	})
	require.NoError(t, err)

	reloaded, err := repo.FindLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LotStatusAvailable, reloaded.Status)
	assert.Equal(t, int64(0), reloaded.Version)
	assert.True(t, reloaded.Price.Equal(decimal.NewFromInt(50000)))
}

func TestListProjectLotsPaginatesAndFilters(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	projectID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		lot := &models.Lot{
			ID:        uuid.New(),
			ProjectID: projectID,
			Code:      "MZ-B-0" + string(rune('1'+i)),
			AreaM2:    decimal.NewFromInt(100),
			Price:     decimal.NewFromInt(30000),
			Currency:  enums.CurrencyPEN,
			Status:    enums.LotStatusAvailable,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i == 4 {
			lot.Status = enums.LotStatusReserved
		}
		require.NoError(t, db.Create(lot).Error)
	}

	page, err := repo.ListProjectLots(ctx, projectID, pagination.Params{Limit: 2}, LotFilters{})
	require.NoError(t, err)
	require.Len(t, page.Lots, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := repo.ListProjectLots(ctx, projectID, pagination.Params{Limit: 2, Cursor: page.NextCursor}, LotFilters{})
	require.NoError(t, err)
	require.Len(t, next.Lots, 2)
	assert.NotEqual(t, page.Lots[0].ID, next.Lots[0].ID)

	reserved := enums.LotStatusReserved
	filtered, err := repo.ListProjectLots(ctx, projectID, pagination.Params{}, LotFilters{Status: &reserved})
	require.NoError(t, err)
	require.Len(t, filtered.Lots, 1)
	assert.Equal(t, enums.LotStatusReserved, filtered.Lots[0].Status)
}

func TestCountLotReferences(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	lot := newLot(t, db, uuid.New(), "MZ-C-01", enums.LotStatusReserved)

	reservation := &models.Reservation{
		ID:       uuid.New(),
		Code:     "RSV-20250812-001",
		LotID:    lot.ID,
		ClientID: uuid.New(),
		AgentID:  uuid.New(),
		Status:   enums.ReservationStatusActive,
		DueAt:    time.Now().Add(72 * time.Hour),
	}
	require.NoError(t, db.Create(reservation).Error)

	refs, err := repo.CountLotReferences(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), refs)

	found, err := repo.FindActiveReservation(ctx, lot.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, reservation.ID, found.ID)

	none, err := repo.FindActiveReservation(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}
