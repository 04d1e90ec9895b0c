package reservations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/internal/inventory"
	"github.com/rcastillo-dev/terralote-backend/pkg/config"
	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
	"github.com/rcastillo-dev/terralote-backend/pkg/outbox"
)

func setupReservationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
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
  code TEXT NOT NULL UNIQUE,
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
	require.NoError(t, db.Exec(lots).Error)
	require.NoError(t, db.Exec(reservations).Error)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type capturingOutbox struct {
	events []outbox.DomainEvent
}

func (c *capturingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func seedLot(t *testing.T, db *gorm.DB, status enums.LotStatus) *models.Lot {
	t.Helper()

	lot := &models.Lot{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Code:      "MZ-A-" + uuid.NewString()[:4],
		AreaM2:    decimal.NewFromInt(120),
		Price:     decimal.NewFromInt(45000),
		Currency:  enums.CurrencyPEN,
		Status:    status,
		Version:   0,
	}
	require.NoError(t, db.Create(lot).Error)
	return lot
}

func newTestService(t *testing.T, db *gorm.DB, sink *capturingOutbox, now time.Time) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(db),
		Inventory: inventory.NewRepository(db),
		Tx:        &gormTxRunner{db: db},
		Outbox:    sink,
		Config:    config.ReservationConfig{DefaultDurationDays: 3, MaxDurationDays: 30},
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func TestReservePlacesHold(t *testing.T) {
	db := setupReservationsTestDB(t)
	sink := &capturingOutbox{}
	now := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, sink, now)

	lot := seedLot(t, db, enums.LotStatusAvailable)

	reservation, err := svc.Reserve(context.Background(), ReserveInput{
		LotID:    lot.ID,
		ClientID: uuid.New(),
		AgentID:  uuid.New(),
		Deposit:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.Equal(t, "RSV-20250812-001", reservation.Code)
	assert.Equal(t, enums.ReservationStatusActive, reservation.Status)
	assert.Equal(t, now.Add(72*time.Hour), reservation.DueAt)

	var reloaded models.Lot
	require.NoError(t, db.First(&reloaded, "id = ?", lot.ID).Error)
	assert.Equal(t, enums.LotStatusReserved, reloaded.Status)
	assert.Equal(t, int64(1), reloaded.Version)

	require.Len(t, sink.events, 1)
	assert.Equal(t, enums.EventReservationCreated, sink.events[0].EventType)
}

func TestReserveCodeSequenceWithinDay(t *testing.T) {
	db := setupReservationsTestDB(t)
	sink := &capturingOutbox{}
	now := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, sink, now)

	first := seedLot(t, db, enums.LotStatusAvailable)
	second := seedLot(t, db, enums.LotStatusAvailable)

	r1, err := svc.Reserve(context.Background(), ReserveInput{
		LotID: first.ID, ClientID: uuid.New(), AgentID: uuid.New(),
	})
	require.NoError(t, err)
	r2, err := svc.Reserve(context.Background(), ReserveInput{
		LotID: second.ID, ClientID: uuid.New(), AgentID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, "RSV-20250812-001", r1.Code)
	assert.Equal(t, "RSV-20250812-002", r2.Code)
}

func TestReserveRejectsHeldLot(t *testing.T) {
	db := setupReservationsTestDB(t)
	sink := &capturingOutbox{}
	svc := newTestService(t, db, sink, time.Now())

	lot := seedLot(t, db, enums.LotStatusReserved)

	_, err := svc.Reserve(context.Background(), ReserveInput{
		LotID: lot.ID, ClientID: uuid.New(), AgentID: uuid.New(),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeLotUnavailable, typed.Code())
	assert.Empty(t, sink.events)
}

// staleReadInventory simulates a racing writer: FindLot reports the lot as
// still available at version 0 even though the stored row has moved on.
type staleReadInventory struct {
	inventory.Repository
}

func (s *staleReadInventory) WithTx(tx *gorm.DB) inventory.Repository {
	return &staleReadInventory{Repository: s.Repository.WithTx(tx)}
}

func (s *staleReadInventory) FindLot(ctx context.Context, lotID uuid.UUID) (*models.Lot, error) {
	lot, err := s.Repository.FindLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	stale := *lot
	stale.Status = enums.LotStatusAvailable
	stale.Version = 0
	return &stale, nil
}

func TestReserveLostRaceRollsBackReservation(t *testing.T) {
	db := setupReservationsTestDB(t)
	sink := &capturingOutbox{}
	now := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)

	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(db),
		Inventory: &staleReadInventory{Repository: inventory.NewRepository(db)},
		Tx:        &gormTxRunner{db: db},
		Outbox:    sink,
		Config:    config.ReservationConfig{DefaultDurationDays: 3, MaxDurationDays: 30},
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	// The stored row is already reserved at version 1; the stale read above
	// makes the service believe it can still win.
	lot := seedLot(t, db, enums.LotStatusReserved)
	require.NoError(t, db.Model(&models.Lot{}).Where("id = ?", lot.ID).Update("version", 1).Error)

	_, err = svc.Reserve(context.Background(), ReserveInput{
		LotID: lot.ID, ClientID: uuid.New(), AgentID: uuid.New(),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeLotUnavailable, typed.Code())

	var count int64
	require.NoError(t, db.Model(&models.Reservation{}).Where("lot_id = ?", lot.ID).Count(&count).Error)
	assert.Zero(t, count, "losing reservation row must not survive the rollback")
}

func TestCancelReleasesLot(t *testing.T) {
	db := setupReservationsTestDB(t)
	sink := &capturingOutbox{}
	now := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, db, sink, now)

	lot := seedLot(t, db, enums.LotStatusAvailable)
	reservation, err := svc.Reserve(context.Background(), ReserveInput{
		LotID: lot.ID, ClientID: uuid.New(), AgentID: uuid.New(),
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), reservation.ID, "client backed out")
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "client backed out", *cancelled.CancelReason)

	var reloaded models.Lot
	require.NoError(t, db.First(&reloaded, "id = ?", lot.ID).Error)
	assert.Equal(t, enums.LotStatusAvailable, reloaded.Status)
	assert.Equal(t, int64(2), reloaded.Version)

	require.Len(t, sink.events, 2)
	assert.Equal(t, enums.EventReservationCancelled, sink.events[1].EventType)
}

func TestCancelRequiresActiveReservation(t *testing.T) {
	db := setupReservationsTestDB(t)
	sink := &capturingOutbox{}
	svc := newTestService(t, db, sink, time.Now())

	lot := seedLot(t, db, enums.LotStatusAvailable)
	reservation, err := svc.Reserve(context.Background(), ReserveInput{
		LotID: lot.ID, ClientID: uuid.New(), AgentID: uuid.New(),
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), reservation.ID, "first")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), reservation.ID, "second")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCancelSurfacesLotDivergenceAsInternal(t *testing.T) {
	db := setupReservationsTestDB(t)
	sink := &capturingOutbox{}
	svc := newTestService(t, db, sink, time.Now())

	lot := seedLot(t, db, enums.LotStatusAvailable)
	reservation, err := svc.Reserve(context.Background(), ReserveInput{
		LotID: lot.ID, ClientID: uuid.New(), AgentID: uuid.New(),
	})
	require.NoError(t, err)

	// Corrupt the pairing: the lot is released while its reservation stays
	// active. Cancel must refuse to paper over it.
	require.NoError(t, db.Model(&models.Lot{}).Where("id = ?", lot.ID).
		Update("status", enums.LotStatusAvailable).Error)

	_, err = svc.Cancel(context.Background(), reservation.ID, "")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInternal, typed.Code())

	var reloaded models.Reservation
	require.NoError(t, db.First(&reloaded, "id = ?", reservation.ID).Error)
	assert.Equal(t, enums.ReservationStatusActive, reloaded.Status, "rollback must keep the reservation active")
}
