package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
)

// Repository defines persistence operations for sales and their payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)
	FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	FindSaleWithPayments(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	UpdateSale(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	ListPayments(ctx context.Context, saleID uuid.UUID) ([]models.Payment, error)
}
