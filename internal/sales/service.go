package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/internal/inventory"
	"github.com/rcastillo-dev/terralote-backend/internal/reservations"
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

// Service converts reservations into sales and tracks collections.
type Service interface {
	Convert(ctx context.Context, reservationID uuid.UUID, terms ConvertInput) (*models.Sale, error)
	RecordPayment(ctx context.Context, saleID uuid.UUID, input PaymentInput) (*models.Sale, error)
	VoidSale(ctx context.Context, saleID uuid.UUID, reason string) (*models.Sale, error)
	Get(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
}

// ConvertInput carries the final terms agreed at conversion time.
type ConvertInput struct {
	TotalPrice        decimal.Decimal
	PaymentPlan       enums.PaymentPlan
	Installments      *int
	InstallmentAmount *decimal.Decimal
	Notes             *string
}

// PaymentInput describes a collection against an open sale.
type PaymentInput struct {
	Amount      decimal.Decimal
	Method      enums.PaymentMethod
	Reference   *string
	Installment *int
	Notes       *string
	PaidAt      time.Time
}

// ServiceParams bundles the sales service dependencies.
type ServiceParams struct {
	Repo         Repository
	Reservations reservations.Repository
	Inventory    inventory.Repository
	Tx           txRunner
	Outbox       outboxPublisher
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	repo   Repository
	resv   reservations.Repository
	inv    inventory.Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a sales service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
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
	return &service{
		repo:   params.Repo,
		resv:   params.Reservations,
		inv:    params.Inventory,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// Convert closes an active reservation into a sale. Everything happens in one
// transaction: the sale row, the deposit payment, the lot transition and the
// reservation terminal state commit together or not at all.
func (s *service) Convert(ctx context.Context, reservationID uuid.UUID, terms ConvertInput) (*models.Sale, error) {
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if terms.TotalPrice.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total price must be positive")
	}
	if !terms.PaymentPlan.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment plan")
	}
	if terms.Installments != nil && *terms.Installments <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "installments must be positive")
	}

	now := s.now()
	var created *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		resv := s.resv.WithTx(tx)
		inv := s.inv.WithTx(tx)

		reservation, err := resv.FindReservation(ctx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}
		if reservation.Status != enums.ReservationStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only active reservations can be converted").
				WithDetails(map[string]string{"status": reservation.Status.String()})
		}
		if terms.TotalPrice.LessThan(reservation.Deposit) {
			return pkgerrors.New(pkgerrors.CodeValidation, "total price cannot be below the deposit")
		}

		lot, err := inv.FindLot(ctx, reservation.LotID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lot")
		}

		balance := terms.TotalPrice.Sub(reservation.Deposit)
		sale := &models.Sale{
			ID:                uuid.New(),
			LotID:             reservation.LotID,
			ClientID:          reservation.ClientID,
			AgentID:           reservation.AgentID,
			ReservationID:     &reservation.ID,
			Status:            enums.SaleStatusInProgress,
			PaymentPlan:       terms.PaymentPlan,
			TotalPrice:        terms.TotalPrice,
			Balance:           balance,
			Currency:          reservation.Currency,
			Installments:      terms.Installments,
			InstallmentAmount: terms.InstallmentAmount,
			Notes:             terms.Notes,
		}
		if balance.IsZero() {
			sale.Status = enums.SaleStatusCompleted
			sale.CompletedAt = &now
		}
		if _, err := repo.CreateSale(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
		}

		if reservation.Deposit.GreaterThan(decimal.Zero) {
			method := enums.PaymentMethodCash
			if reservation.DepositMethod != nil {
				method = *reservation.DepositMethod
			}
			deposit := &models.Payment{
				ID:       uuid.New(),
				SaleID:   sale.ID,
				Amount:   reservation.Deposit,
				Currency: reservation.Currency,
				Method:   method,
				PaidAt:   now,
			}
			if _, err := repo.CreatePayment(ctx, deposit); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record deposit payment")
			}
		}

		if err := inv.CompareAndSetStatus(ctx, lot.ID, enums.LotStatusReserved, lot.Version, enums.LotStatusSold); err != nil {
			if errors.Is(err, inventory.ErrVersionConflict) {
				if s.logg != nil {
					logCtx := s.logg.WithFields(ctx, map[string]any{
						"reservation_id": reservation.ID.String(),
						"lot_id":         lot.ID.String(),
						"lot_status":     lot.Status.String(),
						"lot_version":    lot.Version,
					})
					s.logg.Error(logCtx, "lot state diverged from active reservation during conversion", err)
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lot state inconsistent with reservation")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark lot sold")
		}

		if err := resv.UpdateReservation(ctx, reservation.ID, map[string]any{
			"status":       enums.ReservationStatusConverted,
			"converted_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark reservation converted")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			Actor:         &outbox.ActorRef{AgentID: reservation.AgentID},
			Data: outbox.SaleEventPayload{
				SaleID:      sale.ID,
				LotID:       sale.LotID,
				ClientID:    sale.ClientID,
				AgentID:     sale.AgentID,
				TotalPrice:  sale.TotalPrice,
				Balance:     sale.Balance,
				Currency:    sale.Currency.String(),
				PaymentPlan: sale.PaymentPlan.String(),
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit sale event")
		}

		created = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RecordPayment appends a collection and walks the balance down. A payment
// larger than the outstanding balance is rejected without touching anything.
func (s *service) RecordPayment(ctx context.Context, saleID uuid.UUID, input PaymentInput) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	now := s.now()
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}

	var updated *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sale, err := repo.FindSale(ctx, saleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if sale.Status != enums.SaleStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is not accepting payments").
				WithDetails(map[string]string{"status": sale.Status.String()})
		}
		if input.Amount.GreaterThan(sale.Balance) {
			return pkgerrors.New(pkgerrors.CodeOverPayment, "payment exceeds outstanding balance").
				WithDetails(map[string]string{
					"balance": sale.Balance.String(),
					"amount":  input.Amount.String(),
				})
		}

		payment := &models.Payment{
			ID:          uuid.New(),
			SaleID:      sale.ID,
			Amount:      input.Amount,
			Currency:    sale.Currency,
			Method:      input.Method,
			Reference:   input.Reference,
			Installment: input.Installment,
			Notes:       input.Notes,
			PaidAt:      paidAt,
		}
		if _, err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}

		balance := sale.Balance.Sub(input.Amount)
		updates := map[string]any{"balance": balance}
		if balance.IsZero() {
			updates["status"] = enums.SaleStatusCompleted
			updates["completed_at"] = now
		}
		if err := repo.UpdateSale(ctx, sale.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale balance")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			Data: outbox.PaymentEventPayload{
				PaymentID: payment.ID,
				SaleID:    sale.ID,
				Amount:    payment.Amount,
				Currency:  payment.Currency.String(),
				Balance:   balance,
				PaidAt:    payment.PaidAt,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment event")
		}

		sale.Balance = balance
		if balance.IsZero() {
			sale.Status = enums.SaleStatusCompleted
			sale.CompletedAt = &now
		}
		updated = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// VoidSale is the administrative escape hatch: the sale is cancelled and the
// lot returns to the pool.
func (s *service) VoidSale(ctx context.Context, saleID uuid.UUID, reason string) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}

	now := s.now()
	var voided *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv := s.inv.WithTx(tx)

		sale, err := repo.FindSale(ctx, saleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if sale.Status == enums.SaleStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is already void")
		}

		updates := map[string]any{
			"status":    enums.SaleStatusCancelled,
			"voided_at": now,
		}
		if reason != "" {
			updates["notes"] = reason
		}
		if err := repo.UpdateSale(ctx, sale.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void sale")
		}

		lot, err := inv.FindLot(ctx, sale.LotID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lot")
		}
		if err := inv.CompareAndSetStatus(ctx, lot.ID, enums.LotStatusSold, lot.Version, enums.LotStatusAvailable); err != nil {
			if errors.Is(err, inventory.ErrVersionConflict) {
				if s.logg != nil {
					logCtx := s.logg.WithFields(ctx, map[string]any{
						"sale_id":     sale.ID.String(),
						"lot_id":      lot.ID.String(),
						"lot_status":  lot.Status.String(),
						"lot_version": lot.Version,
					})
					s.logg.Error(logCtx, "lot state diverged from sale during void", err)
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lot state inconsistent with sale")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen lot")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventSaleVoided,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			Data: outbox.SaleEventPayload{
				SaleID:      sale.ID,
				LotID:       sale.LotID,
				ClientID:    sale.ClientID,
				AgentID:     sale.AgentID,
				TotalPrice:  sale.TotalPrice,
				Balance:     sale.Balance,
				Currency:    sale.Currency.String(),
				PaymentPlan: sale.PaymentPlan.String(),
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit sale voided event")
		}

		sale.Status = enums.SaleStatusCancelled
		sale.VoidedAt = &now
		voided = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voided, nil
}

func (s *service) Get(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	sale, err := s.repo.FindSaleWithPayments(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}
