package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
)

// Repository provides read access to the client and agent directory.
type Repository interface {
	FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	FindClientByDocument(ctx context.Context, documentID string) (*models.Client, error)
	FindAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}
