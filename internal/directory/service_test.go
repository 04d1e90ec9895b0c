package directory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
)

func setupDirectoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	clients := `
CREATE TABLE IF NOT EXISTS clients (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  document_id TEXT NOT NULL UNIQUE,
  email TEXT,
  phone TEXT,
  address TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`
	agents := `
CREATE TABLE IF NOT EXISTS agents (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`
	require.NoError(t, db.Exec(clients).Error)
	require.NoError(t, db.Exec(agents).Error)
	return db
}

func TestPartyRefsResolvesBothParties(t *testing.T) {
	db := setupDirectoryTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	client := &models.Client{ID: uuid.New(), FirstName: "Rosa", LastName: "Quispe", DocumentID: "45678912"}
	agent := &models.Agent{ID: uuid.New(), FirstName: "Diego", LastName: "Paredes", Email: "diego@example.com", Active: true}
	require.NoError(t, db.Create(client).Error)
	require.NoError(t, db.Create(agent).Error)

	clientRef, agentRef, err := svc.PartyRefs(context.Background(), client.ID, agent.ID)
	require.NoError(t, err)
	require.NotNil(t, clientRef)
	require.NotNil(t, agentRef)
	assert.Equal(t, "Rosa Quispe", clientRef.Name)
	assert.Equal(t, "Diego Paredes", agentRef.Name)
}

func TestPartyRefsToleratesMissingRows(t *testing.T) {
	db := setupDirectoryTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	clientRef, agentRef, err := svc.PartyRefs(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, clientRef)
	assert.Nil(t, agentRef)
}

func TestGetClientNotFound(t *testing.T) {
	db := setupDirectoryTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	_, err = svc.GetClient(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestFindClientByDocumentSkipsDeleted(t *testing.T) {
	db := setupDirectoryTestDB(t)
	repo := NewRepository(db)

	client := &models.Client{ID: uuid.New(), FirstName: "Luis", LastName: "Mori", DocumentID: "11223344"}
	require.NoError(t, db.Create(client).Error)

	found, err := repo.FindClientByDocument(context.Background(), "11223344")
	require.NoError(t, err)
	assert.Equal(t, client.ID, found.ID)

	require.NoError(t, db.Exec("UPDATE clients SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?", client.ID).Error)
	_, err = repo.FindClientByDocument(context.Background(), "11223344")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
