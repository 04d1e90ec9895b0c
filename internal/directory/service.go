package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
)

// Service exposes directory reads used to decorate API responses.
type Service interface {
	GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	PartyRefs(ctx context.Context, clientID, agentID uuid.UUID) (*PartyRef, *PartyRef, error)
}

// PartyRef is the compact display shape embedded in reservation and sale
// responses.
type PartyRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type service struct {
	repo Repository
}

// NewService builds a directory service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("directory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	client, err := s.repo.FindClient(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	return client, nil
}

func (s *service) GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	agent, err := s.repo.FindAgent(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	return agent, nil
}

// PartyRefs resolves both parties of a reservation or sale in one call.
// Missing rows come back as nil refs rather than errors so a stale directory
// never blocks reading the transaction itself.
func (s *service) PartyRefs(ctx context.Context, clientID, agentID uuid.UUID) (*PartyRef, *PartyRef, error) {
	var clientRef, agentRef *PartyRef

	if clientID != uuid.Nil {
		client, err := s.repo.FindClient(ctx, clientID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
		}
		if client != nil {
			clientRef = &PartyRef{ID: client.ID, Name: client.FirstName + " " + client.LastName}
		}
	}
	if agentID != uuid.Nil {
		agent, err := s.repo.FindAgent(ctx, agentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
		}
		if agent != nil {
			agentRef = &PartyRef{ID: agent.ID, Name: agent.FirstName + " " + agent.LastName}
		}
	}
	return clientRef, agentRef, nil
}
