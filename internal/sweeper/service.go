package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/internal/inventory"
	"github.com/rcastillo-dev/terralote-backend/internal/reservations"
	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	"github.com/rcastillo-dev/terralote-backend/pkg/logger"
	"github.com/rcastillo-dev/terralote-backend/pkg/outbox"
)

const defaultBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams bundles the sweep service dependencies.
type ServiceParams struct {
	Reservations reservations.Repository
	Inventory    inventory.Repository
	Tx           txRunner
	Outbox       outboxPublisher
	Logger       *logger.Logger
	BatchSize    int
	Now          func() time.Time
}

// Service expires overdue reservations and returns their lots to the pool.
type Service struct {
	reservations reservations.Repository
	inv          inventory.Repository
	tx           txRunner
	outbox       outboxPublisher
	logg         *logger.Logger
	batchSize    int
	now          func() time.Time
}

// NewService builds a sweep service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Reservations == nil {
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
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		reservations: params.Reservations,
		inv:          params.Inventory,
		tx:           params.Tx,
		outbox:       params.Outbox,
		logg:         params.Logger,
		batchSize:    batchSize,
		now:          now,
	}, nil
}

// Sweep expires every active reservation whose due date has passed. Each
// reservation is handled in its own transaction so one bad row cannot block
// the rest of the batch. Returns the number of reservations expired and the
// combined error of every failed item.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.reservations.ListActiveDueBefore(ctx, now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list due reservations: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	var (
		expired int
		errs    []error
	)
	for i := range due {
		if err := s.expireOne(ctx, due[i].ID, now); err != nil {
			errs = append(errs, fmt.Errorf("reservation %s: %w", due[i].ID, err))
			continue
		}
		expired++
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"due":     len(due),
			"expired": expired,
			"failed":  len(errs),
		})
		s.logg.Info(logCtx, "reservation sweep finished")
	}
	return expired, multierr.Combine(errs...)
}

// expireOne re-reads the reservation inside its own transaction so a hold
// cancelled or converted between the batch listing and now is skipped.
func (s *Service) expireOne(ctx context.Context, reservationID uuid.UUID, now time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.reservations.WithTx(tx)
		inv := s.inv.WithTx(tx)

		reservation, err := repo.FindReservation(ctx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load reservation: %w", err)
		}
		if reservation.Status != enums.ReservationStatusActive {
			return nil
		}

		updates := map[string]any{
			"status":     enums.ReservationStatusExpired,
			"expired_at": now,
		}
		if err := repo.UpdateReservation(ctx, reservation.ID, updates); err != nil {
			return fmt.Errorf("mark reservation expired: %w", err)
		}

		if err := s.releaseLot(ctx, inv, reservation); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventReservationExpired,
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
			return fmt.Errorf("emit reservation expired event: %w", err)
		}
		return nil
	})
}

// releaseLot moves the reservation's lot back to available. A lot already
// back in the pool is tolerated so a rerun after a partial failure converges
// instead of erroring forever.
func (s *Service) releaseLot(ctx context.Context, inv inventory.Repository, reservation *models.Reservation) error {
	lot, err := inv.FindLot(ctx, reservation.LotID)
	if err != nil {
		return fmt.Errorf("load lot: %w", err)
	}
	if lot.Status == enums.LotStatusAvailable {
		return nil
	}
	if lot.Status != enums.LotStatusReserved {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"reservation_id": reservation.ID.String(),
				"lot_id":         lot.ID.String(),
				"lot_status":     lot.Status.String(),
			})
			s.logg.Error(logCtx, "lot state diverged from overdue reservation", nil)
		}
		return fmt.Errorf("lot %s is %s while its reservation is still active", lot.ID, lot.Status)
	}
	if err := inv.CompareAndSetStatus(ctx, lot.ID, enums.LotStatusReserved, lot.Version, enums.LotStatusAvailable); err != nil {
		return fmt.Errorf("release lot: %w", err)
	}
	return nil
}
