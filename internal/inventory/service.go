package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/rcastillo-dev/terralote-backend/pkg/db"
	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
	"github.com/rcastillo-dev/terralote-backend/pkg/outbox"
	"github.com/rcastillo-dev/terralote-backend/pkg/pagination"
	"github.com/rcastillo-dev/terralote-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines inventory-level operations beyond repository reads.
type Service interface {
	CreateLot(ctx context.Context, input CreateLotInput) (*models.Lot, error)
	ImportLots(ctx context.Context, projectID uuid.UUID, inputs []CreateLotInput) ([]models.Lot, error)
	GetLot(ctx context.Context, lotID uuid.UUID) (*LotDetail, error)
	ListProjectLots(ctx context.Context, projectID uuid.UUID, params pagination.Params, filters LotFilters) (*LotList, error)
	DeleteLot(ctx context.Context, lotID uuid.UUID) error
}

// CreateLotInput carries the fields needed to register a lot.
type CreateLotInput struct {
	ProjectID uuid.UUID
	Code      string
	Block     *string
	Stage     *string
	AreaM2    decimal.Decimal
	Price     decimal.Decimal
	Currency  enums.Currency
	Metadata  *types.JSONMap
}

// LotDetail decorates a lot with its current hold or sale, when one exists.
type LotDetail struct {
	Lot         models.Lot
	Reservation *models.Reservation
	Sale        *models.Sale
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an inventory service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) CreateLot(ctx context.Context, input CreateLotInput) (*models.Lot, error) {
	lot, err := buildLot(input)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateLot(ctx, lot)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_lots_project_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "lot code already exists in project")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create lot")
	}
	return created, nil
}

func (s *service) ImportLots(ctx context.Context, projectID uuid.UUID, inputs []CreateLotInput) ([]models.Lot, error) {
	if projectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one lot required")
	}

	lots := make([]models.Lot, 0, len(inputs))
	seen := map[string]struct{}{}
	for _, input := range inputs {
		input.ProjectID = projectID
		lot, err := buildLot(input)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[lot.Code]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate lot code in batch").
				WithDetails(map[string]string{"code": lot.Code})
		}
		seen[lot.Code] = struct{}{}
		lots = append(lots, *lot)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateLots(ctx, lots); err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_lots_project_code") {
				return pkgerrors.New(pkgerrors.CodeConflict, "lot code already exists in project")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "import lots")
		}
		for i := range lots {
			event := outbox.DomainEvent{
				EventType:     enums.EventLotImported,
				AggregateType: enums.AggregateLot,
				AggregateID:   lots[i].ID,
				Data: map[string]any{
					"lotId":     lots[i].ID,
					"projectId": projectID,
					"code":      lots[i].Code,
				},
				Version: 1,
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit lot imported event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (s *service) GetLot(ctx context.Context, lotID uuid.UUID) (*LotDetail, error) {
	if lotID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lot id required")
	}
	lot, err := s.repo.FindLot(ctx, lotID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lot")
	}

	detail := &LotDetail{Lot: *lot}
	switch lot.Status {
	case enums.LotStatusReserved:
		reservation, err := s.repo.FindActiveReservation(ctx, lotID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active reservation")
		}
		detail.Reservation = reservation
	case enums.LotStatusSold:
		sale, err := s.repo.FindOpenSale(ctx, lotID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		detail.Sale = sale
	}
	return detail, nil
}

func (s *service) ListProjectLots(ctx context.Context, projectID uuid.UUID, params pagination.Params, filters LotFilters) (*LotList, error) {
	if projectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	list, err := s.repo.ListProjectLots(ctx, projectID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list project lots")
	}
	return list, nil
}

func (s *service) DeleteLot(ctx context.Context, lotID uuid.UUID) error {
	if lotID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "lot id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		lot, err := repo.FindLot(ctx, lotID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "lot not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lot")
		}
		if lot.Status != enums.LotStatusAvailable {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only available lots can be removed")
		}
		refs, err := repo.CountLotReferences(ctx, lotID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count lot references")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "lot has reservation or sale history")
		}
		if err := repo.DeleteLot(ctx, lotID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete lot")
		}
		return nil
	})
}

func buildLot(input CreateLotInput) (*models.Lot, error) {
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lot code required")
	}
	if input.AreaM2.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lot area must be positive")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lot price cannot be negative")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyPEN
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown currency")
	}
	return &models.Lot{
		ID:        uuid.New(),
		ProjectID: input.ProjectID,
		Code:      code,
		Block:     input.Block,
		Stage:     input.Stage,
		AreaM2:    input.AreaM2,
		Price:     input.Price,
		Currency:  currency,
		Status:    enums.LotStatusAvailable,
		Version:   0,
		Metadata:  input.Metadata,
	}, nil
}
