package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcastillo-dev/terralote-backend/api/responses"
	"github.com/rcastillo-dev/terralote-backend/api/validators"
	"github.com/rcastillo-dev/terralote-backend/internal/directory"
	"github.com/rcastillo-dev/terralote-backend/internal/reservations"
	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
	"github.com/rcastillo-dev/terralote-backend/pkg/logger"
)

type reserveRequest struct {
	LotID         string          `json:"lot_id" validate:"required,uuid4"`
	ClientID      string          `json:"client_id" validate:"required,uuid4"`
	AgentID       string          `json:"agent_id" validate:"required,uuid4"`
	ProposedPrice decimal.Decimal `json:"proposed_price"`
	Deposit       decimal.Decimal `json:"deposit"`
	Currency      string          `json:"currency,omitempty"`
	DepositMethod *string         `json:"deposit_method,omitempty"`
	Installments  *int            `json:"installments,omitempty"`
	DurationDays  int             `json:"duration_days,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
}

type cancelReservationRequest struct {
	Reason string `json:"reason,omitempty"`
}

type reservationResponse struct {
	ID            uuid.UUID           `json:"id"`
	Code          string              `json:"code"`
	LotID         uuid.UUID           `json:"lot_id"`
	Status        string              `json:"status"`
	ProposedPrice decimal.Decimal     `json:"proposed_price"`
	Deposit       decimal.Decimal     `json:"deposit"`
	Currency      string              `json:"currency"`
	DepositMethod *string             `json:"deposit_method,omitempty"`
	Installments  *int                `json:"installments,omitempty"`
	CancelReason  *string             `json:"cancel_reason,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	DueAt         time.Time           `json:"due_at"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	ExpiredAt     *time.Time          `json:"expired_at,omitempty"`
	ConvertedAt   *time.Time          `json:"converted_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	Client        *directory.PartyRef `json:"client,omitempty"`
	Agent         *directory.PartyRef `json:"agent,omitempty"`
}

func Reserve(svc reservations.Service, dir directory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservations service unavailable"))
			return
		}

		var payload reserveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildReserveInput(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.Reserve(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, decorateReservation(r, dir, logg, reservation))
	}
}

func CancelReservation(svc reservations.Service, dir directory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservations service unavailable"))
			return
		}

		reservationID, err := parseUUIDParam(r, "reservationId", "reservation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelReservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.Cancel(r.Context(), reservationID, validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, decorateReservation(r, dir, logg, reservation))
	}
}

func GetReservation(svc reservations.Service, dir directory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservations service unavailable"))
			return
		}

		reservationID, err := parseUUIDParam(r, "reservationId", "reservation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.Get(r.Context(), reservationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, decorateReservation(r, dir, logg, reservation))
	}
}

func buildReserveInput(payload reserveRequest) (reservations.ReserveInput, error) {
	var input reservations.ReserveInput

	lotID, err := uuid.Parse(payload.LotID)
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid lot id")
	}
	clientID, err := uuid.Parse(payload.ClientID)
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client id")
	}
	agentID, err := uuid.Parse(payload.AgentID)
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agent id")
	}

	var currency enums.Currency
	if raw := strings.TrimSpace(payload.Currency); raw != "" {
		parsed, err := enums.ParseCurrency(raw)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		currency = parsed
	}

	var depositMethod *enums.PaymentMethod
	if payload.DepositMethod != nil {
		parsed, err := enums.ParsePaymentMethod(strings.TrimSpace(*payload.DepositMethod))
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid deposit method")
		}
		depositMethod = &parsed
	}

	return reservations.ReserveInput{
		LotID:         lotID,
		ClientID:      clientID,
		AgentID:       agentID,
		ProposedPrice: payload.ProposedPrice,
		Deposit:       payload.Deposit,
		Currency:      currency,
		DepositMethod: depositMethod,
		Installments:  payload.Installments,
		DurationDays:  payload.DurationDays,
		Notes:         payload.Notes,
	}, nil
}

// decorateReservation resolves directory refs best-effort: a directory read
// failure is logged but never fails the request that already committed.
func decorateReservation(r *http.Request, dir directory.Service, logg *logger.Logger, reservation *models.Reservation) reservationResponse {
	var clientRef, agentRef *directory.PartyRef
	if dir != nil {
		refs, aRefs, err := dir.PartyRefs(r.Context(), reservation.ClientID, reservation.AgentID)
		if err != nil {
			if logg != nil {
				logg.Error(r.Context(), "resolve reservation parties", err)
			}
		} else {
			clientRef, agentRef = refs, aRefs
		}
	}
	return toReservationResponse(reservation, clientRef, agentRef)
}

func toReservationResponse(reservation *models.Reservation, client, agent *directory.PartyRef) reservationResponse {
	return reservationResponse{
		ID:            reservation.ID,
		Code:          reservation.Code,
		LotID:         reservation.LotID,
		Status:        reservation.Status.String(),
		ProposedPrice: reservation.ProposedPrice,
		Deposit:       reservation.Deposit,
		Currency:      reservation.Currency.String(),
		DepositMethod: paymentMethodString(reservation.DepositMethod),
		Installments:  reservation.Installments,
		CancelReason:  reservation.CancelReason,
		Notes:         reservation.Notes,
		DueAt:         reservation.DueAt,
		CancelledAt:   reservation.CancelledAt,
		ExpiredAt:     reservation.ExpiredAt,
		ConvertedAt:   reservation.ConvertedAt,
		CreatedAt:     reservation.CreatedAt,
		Client:        client,
		Agent:         agent,
	}
}

func paymentMethodString(method *enums.PaymentMethod) *string {
	if method == nil {
		return nil
	}
	s := method.String()
	return &s
}
