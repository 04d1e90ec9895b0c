package directory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a directory repository on the shared connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) FindClientByDocument(ctx context.Context, documentID string) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND deleted_at IS NULL", documentID).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) FindAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&agent).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}
