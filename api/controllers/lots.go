package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcastillo-dev/terralote-backend/api/responses"
	"github.com/rcastillo-dev/terralote-backend/api/validators"
	"github.com/rcastillo-dev/terralote-backend/internal/inventory"
	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
	"github.com/rcastillo-dev/terralote-backend/pkg/logger"
	"github.com/rcastillo-dev/terralote-backend/pkg/pagination"
	"github.com/rcastillo-dev/terralote-backend/pkg/types"
)

type lotPayload struct {
	Code     string          `json:"code" validate:"required"`
	Block    *string         `json:"block,omitempty"`
	Stage    *string         `json:"stage,omitempty"`
	AreaM2   decimal.Decimal `json:"area_m2" validate:"required"`
	Price    decimal.Decimal `json:"price" validate:"required"`
	Currency string          `json:"currency,omitempty"`
	Metadata *types.JSONMap  `json:"metadata,omitempty"`
}

type createLotRequest struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
	lotPayload
}

type importLotsRequest struct {
	Lots []lotPayload `json:"lots" validate:"required,min=1,dive"`
}

type lotResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID uuid.UUID       `json:"project_id"`
	Code      string          `json:"code"`
	Block     *string         `json:"block,omitempty"`
	Stage     *string         `json:"stage,omitempty"`
	AreaM2    decimal.Decimal `json:"area_m2"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Version   int64           `json:"version"`
	Metadata  *types.JSONMap  `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type lotListResponse struct {
	Lots       []lotResponse `json:"lots"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type lotDetailResponse struct {
	Lot         lotResponse          `json:"lot"`
	Reservation *reservationResponse `json:"reservation,omitempty"`
	Sale        *saleResponse        `json:"sale,omitempty"`
}

func CreateLot(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload createLotRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		projectID, err := uuid.Parse(payload.ProjectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid project id"))
			return
		}
		input, err := buildLotInput(projectID, payload.lotPayload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lot, err := svc.CreateLot(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toLotResponse(lot))
	}
}

func ImportLots(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		projectID, err := parseUUIDParam(r, "projectId", "project id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload importLotsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inputs := make([]inventory.CreateLotInput, 0, len(payload.Lots))
		for _, line := range payload.Lots {
			input, err := buildLotInput(projectID, line)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			inputs = append(inputs, input)
		}

		lots, err := svc.ImportLots(r.Context(), projectID, inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]lotResponse, 0, len(lots))
		for i := range lots {
			out = append(out, toLotResponse(&lots[i]))
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"lots": out, "count": len(out)})
	}
}

func GetLot(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		lotID, err := parseUUIDParam(r, "lotId", "lot id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetLot(r.Context(), lotID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := lotDetailResponse{Lot: toLotResponse(&detail.Lot)}
		if detail.Reservation != nil {
			resp := toReservationResponse(detail.Reservation, nil, nil)
			out.Reservation = &resp
		}
		if detail.Sale != nil {
			resp := toSaleResponse(detail.Sale)
			out.Sale = &resp
		}
		responses.WriteSuccess(w, out)
	}
}

func ListProjectLots(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		projectID, err := parseUUIDParam(r, "projectId", "project id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildLotFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListProjectLots(r.Context(), projectID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := lotListResponse{
			Lots:       make([]lotResponse, 0, len(list.Lots)),
			NextCursor: list.NextCursor,
		}
		for i := range list.Lots {
			out.Lots = append(out.Lots, toLotResponse(&list.Lots[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func DeleteLot(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		lotID, err := parseUUIDParam(r, "lotId", "lot id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteLot(r.Context(), lotID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func buildLotInput(projectID uuid.UUID, payload lotPayload) (inventory.CreateLotInput, error) {
	var currency enums.Currency
	if raw := strings.TrimSpace(payload.Currency); raw != "" {
		parsed, err := enums.ParseCurrency(raw)
		if err != nil {
			return inventory.CreateLotInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		currency = parsed
	}
	return inventory.CreateLotInput{
		ProjectID: projectID,
		Code:      validators.SanitizeString(payload.Code, 64),
		Block:     payload.Block,
		Stage:     payload.Stage,
		AreaM2:    payload.AreaM2,
		Price:     payload.Price,
		Currency:  currency,
		Metadata:  payload.Metadata,
	}, nil
}

func buildLotFilters(r *http.Request) (inventory.LotFilters, error) {
	var filters inventory.LotFilters
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseLotStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("block")); raw != "" {
		filters.Block = &raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("stage")); raw != "" {
		filters.Stage = &raw
	}
	return filters, nil
}

func toLotResponse(lot *models.Lot) lotResponse {
	return lotResponse{
		ID:        lot.ID,
		ProjectID: lot.ProjectID,
		Code:      lot.Code,
		Block:     lot.Block,
		Stage:     lot.Stage,
		AreaM2:    lot.AreaM2,
		Price:     lot.Price,
		Currency:  lot.Currency.String(),
		Status:    lot.Status.String(),
		Version:   lot.Version,
		Metadata:  lot.Metadata,
		CreatedAt: lot.CreatedAt,
	}
}

func parseUUIDParam(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return parsed, nil
}
