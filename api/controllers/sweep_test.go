package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
	"github.com/rcastillo-dev/terralote-backend/pkg/types"
)

type fakeSweeper struct {
	expired int
	err     error
}

func (f *fakeSweeper) Sweep(context.Context) (int, error) {
	return f.expired, f.err
}

func TestRunSweepReportsExpiredCount(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sweep", nil)
	resp := httptest.NewRecorder()

	RunSweep(&fakeSweeper{expired: 3}, nil)(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope types.SuccessEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]any)
	assert.Equal(t, float64(3), data["expired"])
}

func TestRunSweepMapsPartialFailureToDependency(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sweep", nil)
	resp := httptest.NewRecorder()

	RunSweep(&fakeSweeper{expired: 1, err: errors.New("lot x diverged")}, nil)(resp, req)

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, string(pkgerrors.CodeDependency), envelope.Error.Code)
}
