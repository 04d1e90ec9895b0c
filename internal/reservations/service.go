package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/internal/inventory"
	"github.com/rcastillo-dev/terralote-backend/pkg/config"
	dbpkg "github.com/rcastillo-dev/terralote-backend/pkg/db"
	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
	"github.com/rcastillo-dev/terralote-backend/pkg/logger"
	"github.com/rcastillo-dev/terralote-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the reservation lifecycle operations.
type Service interface {
	Reserve(ctx context.Context, input ReserveInput) (*models.Reservation, error)
	Cancel(ctx context.Context, reservationID uuid.UUID, reason string) (*models.Reservation, error)
	Get(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error)
}

// ReserveInput carries everything needed to place a hold on a lot.
type ReserveInput struct {
	LotID         uuid.UUID
	ClientID      uuid.UUID
	AgentID       uuid.UUID
	ProposedPrice decimal.Decimal
	Deposit       decimal.Decimal
	Currency      enums.Currency
	DepositMethod *enums.PaymentMethod
	Installments  *int
	DurationDays  int
	Notes         *string
}

// ServiceParams bundles the reservation service dependencies.
type ServiceParams struct {
	Repo      Repository
	Inventory inventory.Repository
	Tx        txRunner
	Outbox    outboxPublisher
	Logger    *logger.Logger
	Config    config.ReservationConfig
	Now       func() time.Time
}

type service struct {
	repo   Repository
	inv    inventory.Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	cfg    config.ReservationConfig
	now    func() time.Time
}

// NewService builds a reservation service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reservations repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	cfg := params.Config
	if cfg.DefaultDurationDays <= 0 {
		cfg.DefaultDurationDays = 3
	}
	if cfg.MaxDurationDays <= 0 {
		cfg.MaxDurationDays = 30
	}
	return &service{
		repo:   params.Repo,
		inv:    params.Inventory,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
		cfg:    cfg,
		now:    now,
	}, nil
}

// Reserve places a hold on an available lot. The winner of a concurrent race
// is decided by the conditional status update; the loser's reservation row is
// rolled back with the transaction and the caller sees LOT_UNAVAILABLE.
func (s *service) Reserve(ctx context.Context, input ReserveInput) (*models.Reservation, error) {
	if err := s.validateReserveInput(&input); err != nil {
		return nil, err
	}

	now := s.now()
	var created *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv := s.inv.WithTx(tx)

		lot, err := inv.FindLot(ctx, input.LotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "lot not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lot")
		}
		if lot.Status != enums.LotStatusAvailable {
			return pkgerrors.New(pkgerrors.CodeLotUnavailable, "lot is not available").
				WithDetails(map[string]string{"status": lot.Status.String()})
		}

		code, err := nextCode(ctx, repo, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate reservation code")
		}

		currency := input.Currency
		if currency == "" {
			currency = lot.Currency
		}
		reservation := &models.Reservation{
			ID:            uuid.New(),
			Code:          code,
			LotID:         lot.ID,
			ClientID:      input.ClientID,
			AgentID:       input.AgentID,
			Status:        enums.ReservationStatusActive,
			ProposedPrice: input.ProposedPrice,
			Deposit:       input.Deposit,
			Currency:      currency,
			DepositMethod: input.DepositMethod,
			Installments:  input.Installments,
			Notes:         input.Notes,
			DueAt:         now.Add(time.Duration(input.DurationDays) * 24 * time.Hour),
		}
		if _, err := repo.CreateReservation(ctx, reservation); err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_reservations_active_lot") {
				return pkgerrors.New(pkgerrors.CodeLotUnavailable, "lot is not available")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
		}

		if err := inv.CompareAndSetStatus(ctx, lot.ID, enums.LotStatusAvailable, lot.Version, enums.LotStatusReserved); err != nil {
			if errors.Is(err, inventory.ErrVersionConflict) {
				return pkgerrors.New(pkgerrors.CodeLotUnavailable, "lot is not available")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve lot")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventReservationCreated,
			AggregateType: enums.AggregateReservation,
			AggregateID:   reservation.ID,
			Actor:         &outbox.ActorRef{AgentID: input.AgentID},
			Data: outbox.ReservationEventPayload{
				ReservationID:   reservation.ID,
				ReservationCode: reservation.Code,
				LotID:           reservation.LotID,
				ClientID:        reservation.ClientID,
				AgentID:         reservation.AgentID,
				Deposit:         reservation.Deposit,
				Currency:        reservation.Currency.String(),
				DueAt:           reservation.DueAt,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit reservation created event")
		}

		created = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Cancel releases an active reservation and returns the lot to the pool. A
// conditional-update miss on a reserved lot means the lot and reservation
// states disagree, which should be impossible; it is logged and surfaced as
// an internal error.
func (s *service) Cancel(ctx context.Context, reservationID uuid.UUID, reason string) (*models.Reservation, error) {
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}

	now := s.now()
	var cancelled *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv := s.inv.WithTx(tx)

		reservation, err := repo.FindReservation(ctx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}
		if reservation.Status != enums.ReservationStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only active reservations can be cancelled").
				WithDetails(map[string]string{"status": reservation.Status.String()})
		}

		updates := map[string]any{
			"status":       enums.ReservationStatusCancelled,
			"cancelled_at": now,
		}
		if reason != "" {
			updates["cancel_reason"] = reason
		}
		if err := repo.UpdateReservation(ctx, reservation.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reservation")
		}

		lot, err := inv.FindLot(ctx, reservation.LotID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lot")
		}
		if err := inv.CompareAndSetStatus(ctx, lot.ID, enums.LotStatusReserved, lot.Version, enums.LotStatusAvailable); err != nil {
			if errors.Is(err, inventory.ErrVersionConflict) {
				if s.logg != nil {
					logCtx := s.logg.WithFields(ctx, map[string]any{
						"reservation_id": reservation.ID.String(),
						"lot_id":         lot.ID.String(),
						"lot_status":     lot.Status.String(),
						"lot_version":    lot.Version,
					})
					s.logg.Error(logCtx, "lot state diverged from active reservation during cancel", err)
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lot state inconsistent with reservation")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release lot")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventReservationCancelled,
			AggregateType: enums.AggregateReservation,
			AggregateID:   reservation.ID,
			Data: outbox.ReservationEventPayload{
				ReservationID:   reservation.ID,
				ReservationCode: reservation.Code,
				LotID:           reservation.LotID,
				ClientID:        reservation.ClientID,
				AgentID:         reservation.AgentID,
				Deposit:         reservation.Deposit,
				Currency:        reservation.Currency.String(),
				DueAt:           reservation.DueAt,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit reservation cancelled event")
		}

		reservation.Status = enums.ReservationStatusCancelled
		reservation.CancelledAt = &now
		if reason != "" {
			reservation.CancelReason = &reason
		}
		cancelled = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *service) Get(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	reservation, err := s.repo.FindReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	return reservation, nil
}

func (s *service) validateReserveInput(input *ReserveInput) error {
	if input.LotID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "lot id required")
	}
	if input.ClientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	if input.AgentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if input.Deposit.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "deposit cannot be negative")
	}
	if input.ProposedPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "proposed price cannot be negative")
	}
	if input.Currency != "" && !input.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown currency")
	}
	if input.DepositMethod != nil && !input.DepositMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if input.Installments != nil && *input.Installments <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "installments must be positive")
	}
	if input.DurationDays <= 0 {
		input.DurationDays = s.cfg.DefaultDurationDays
	}
	if input.DurationDays > s.cfg.MaxDurationDays {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation duration exceeds maximum").
			WithDetails(map[string]int{"maxDays": s.cfg.MaxDurationDays})
	}
	return nil
}
