package controllers

import (
	"context"
	"net/http"

	"github.com/rcastillo-dev/terralote-backend/api/responses"
	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
	"github.com/rcastillo-dev/terralote-backend/pkg/logger"
)

type sweepRunner interface {
	Sweep(ctx context.Context) (int, error)
}

// RunSweep triggers an immediate expiration pass. The worker runs the same
// sweep on its schedule; this endpoint exists for operators who cannot wait.
func RunSweep(svc sweepRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweep service unavailable"))
			return
		}

		expired, err := svc.Sweep(r.Context())
		if err != nil {
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"expired": expired})
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sweep run incomplete"))
			return
		}
		responses.WriteSuccess(w, map[string]int{"expired": expired})
	}
}
