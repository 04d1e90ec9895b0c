package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcastillo-dev/terralote-backend/api/responses"
	"github.com/rcastillo-dev/terralote-backend/api/validators"
	"github.com/rcastillo-dev/terralote-backend/internal/sales"
	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
	"github.com/rcastillo-dev/terralote-backend/pkg/logger"
)

type convertRequest struct {
	TotalPrice        decimal.Decimal  `json:"total_price" validate:"required"`
	PaymentPlan       string           `json:"payment_plan" validate:"required"`
	Installments      *int             `json:"installments,omitempty"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
}

type recordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Method      string          `json:"method" validate:"required"`
	Reference   *string         `json:"reference,omitempty"`
	Installment *int            `json:"installment,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
}

type voidSaleRequest struct {
	Reason string `json:"reason,omitempty"`
}

type paymentResponse struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Method      string          `json:"method"`
	Reference   *string         `json:"reference,omitempty"`
	Installment *int            `json:"installment,omitempty"`
	PaidAt      time.Time       `json:"paid_at"`
}

type saleResponse struct {
	ID                uuid.UUID         `json:"id"`
	LotID             uuid.UUID         `json:"lot_id"`
	ReservationID     *uuid.UUID        `json:"reservation_id,omitempty"`
	Status            string            `json:"status"`
	PaymentPlan       string            `json:"payment_plan"`
	TotalPrice        decimal.Decimal   `json:"total_price"`
	Balance           decimal.Decimal   `json:"balance"`
	Currency          string            `json:"currency"`
	Installments      *int              `json:"installments,omitempty"`
	InstallmentAmount *decimal.Decimal  `json:"installment_amount,omitempty"`
	Notes             *string           `json:"notes,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	VoidedAt          *time.Time        `json:"voided_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	Payments          []paymentResponse `json:"payments,omitempty"`
}

func ConvertReservation(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		reservationID, err := parseUUIDParam(r, "reservationId", "reservation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload convertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := enums.ParsePaymentPlan(strings.TrimSpace(payload.PaymentPlan))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment plan"))
			return
		}

		sale, err := svc.Convert(r.Context(), reservationID, sales.ConvertInput{
			TotalPrice:        payload.TotalPrice,
			PaymentPlan:       plan,
			Installments:      payload.Installments,
			InstallmentAmount: payload.InstallmentAmount,
			Notes:             payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toSaleResponse(sale))
	}
}

func GetSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := parseUUIDParam(r, "saleId", "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Get(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSaleResponse(sale))
	}
}

func RecordPayment(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := parseUUIDParam(r, "saleId", "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.Method))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		input := sales.PaymentInput{
			Amount:      payload.Amount,
			Method:      method,
			Reference:   payload.Reference,
			Installment: payload.Installment,
			Notes:       payload.Notes,
		}
		if payload.PaidAt != nil {
			input.PaidAt = *payload.PaidAt
		}

		sale, err := svc.RecordPayment(r.Context(), saleID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toSaleResponse(sale))
	}
}

func VoidSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := parseUUIDParam(r, "saleId", "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload voidSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.VoidSale(r.Context(), saleID, validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSaleResponse(sale))
	}
}

func toSaleResponse(sale *models.Sale) saleResponse {
	out := saleResponse{
		ID:                sale.ID,
		LotID:             sale.LotID,
		ReservationID:     sale.ReservationID,
		Status:            sale.Status.String(),
		PaymentPlan:       sale.PaymentPlan.String(),
		TotalPrice:        sale.TotalPrice,
		Balance:           sale.Balance,
		Currency:          sale.Currency.String(),
		Installments:      sale.Installments,
		InstallmentAmount: sale.InstallmentAmount,
		Notes:             sale.Notes,
		CompletedAt:       sale.CompletedAt,
		VoidedAt:          sale.VoidedAt,
		CreatedAt:         sale.CreatedAt,
	}
	for i := range sale.Payments {
		p := sale.Payments[i]
		out.Payments = append(out.Payments, paymentResponse{
			ID:          p.ID,
			Amount:      p.Amount,
			Currency:    p.Currency.String(),
			Method:      p.Method.String(),
			Reference:   p.Reference,
			Installment: p.Installment,
			PaidAt:      p.PaidAt,
		})
	}
	return out
}
