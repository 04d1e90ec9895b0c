package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcastillo-dev/terralote-backend/internal/sales"
	"github.com/rcastillo-dev/terralote-backend/pkg/db/models"
	"github.com/rcastillo-dev/terralote-backend/pkg/enums"
	pkgerrors "github.com/rcastillo-dev/terralote-backend/pkg/errors"
	"github.com/rcastillo-dev/terralote-backend/pkg/types"
)

type fakeSalesService struct {
	convertFn func(ctx context.Context, reservationID uuid.UUID, terms sales.ConvertInput) (*models.Sale, error)
	paymentFn func(ctx context.Context, saleID uuid.UUID, input sales.PaymentInput) (*models.Sale, error)
	voidFn    func(ctx context.Context, saleID uuid.UUID, reason string) (*models.Sale, error)
	getFn     func(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
}

func (f *fakeSalesService) Convert(ctx context.Context, reservationID uuid.UUID, terms sales.ConvertInput) (*models.Sale, error) {
	return f.convertFn(ctx, reservationID, terms)
}

func (f *fakeSalesService) RecordPayment(ctx context.Context, saleID uuid.UUID, input sales.PaymentInput) (*models.Sale, error) {
	return f.paymentFn(ctx, saleID, input)
}

func (f *fakeSalesService) VoidSale(ctx context.Context, saleID uuid.UUID, reason string) (*models.Sale, error) {
	return f.voidFn(ctx, saleID, reason)
}

func (f *fakeSalesService) Get(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	return f.getFn(ctx, saleID)
}

func sampleSale() *models.Sale {
	reservationID := uuid.New()
	return &models.Sale{
		ID:            uuid.New(),
		LotID:         uuid.New(),
		ClientID:      uuid.New(),
		AgentID:       uuid.New(),
		ReservationID: &reservationID,
		Status:        enums.SaleStatusInProgress,
		PaymentPlan:   enums.PaymentPlanFinanced,
		TotalPrice:    decimal.NewFromInt(45000),
		Balance:       decimal.NewFromInt(44500),
		Currency:      enums.CurrencyPEN,
	}
}

func TestConvertReservationReturnsCreated(t *testing.T) {
	sale := sampleSale()
	var gotReservationID uuid.UUID
	var gotTerms sales.ConvertInput
	svc := &fakeSalesService{
		convertFn: func(_ context.Context, reservationID uuid.UUID, terms sales.ConvertInput) (*models.Sale, error) {
			gotReservationID = reservationID
			gotTerms = terms
			return sale, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/"+sale.ReservationID.String()+"/convert",
		strings.NewReader(`{"total_price":45000,"payment_plan":"financed","installments":24}`))
	req = withURLParam(req, "reservationId", sale.ReservationID.String())
	resp := httptest.NewRecorder()

	ConvertReservation(svc, nil)(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, *sale.ReservationID, gotReservationID)
	assert.Equal(t, enums.PaymentPlanFinanced, gotTerms.PaymentPlan)
	require.NotNil(t, gotTerms.Installments)
	assert.Equal(t, 24, *gotTerms.Installments)
}

func TestConvertReservationRejectsUnknownPlan(t *testing.T) {
	svc := &fakeSalesService{
		convertFn: func(context.Context, uuid.UUID, sales.ConvertInput) (*models.Sale, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	reservationID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations/"+reservationID.String()+"/convert",
		strings.NewReader(`{"total_price":45000,"payment_plan":"barter"}`))
	req = withURLParam(req, "reservationId", reservationID.String())
	resp := httptest.NewRecorder()

	ConvertReservation(svc, nil)(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRecordPaymentMapsOverPaymentTo422(t *testing.T) {
	sale := sampleSale()
	svc := &fakeSalesService{
		paymentFn: func(context.Context, uuid.UUID, sales.PaymentInput) (*models.Sale, error) {
			return nil, pkgerrors.New(pkgerrors.CodeOverPayment, "payment exceeds outstanding balance").
				WithDetails(map[string]string{"balance": "500", "amount": "600"})
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+sale.ID.String()+"/payments",
		strings.NewReader(`{"amount":600,"method":"transfer"}`))
	req = withURLParam(req, "saleId", sale.ID.String())
	resp := httptest.NewRecorder()

	RecordPayment(svc, nil)(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, string(pkgerrors.CodeOverPayment), envelope.Error.Code)
}

func TestRecordPaymentSettlingSale(t *testing.T) {
	sale := sampleSale()
	sale.Status = enums.SaleStatusCompleted
	sale.Balance = decimal.Zero
	svc := &fakeSalesService{
		paymentFn: func(_ context.Context, _ uuid.UUID, input sales.PaymentInput) (*models.Sale, error) {
			if input.Method != enums.PaymentMethodTransfer {
				t.Fatalf("unexpected method %v", input.Method)
			}
			return sale, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+sale.ID.String()+"/payments",
		strings.NewReader(`{"amount":44500,"method":"transfer","reference":"OP-9912"}`))
	req = withURLParam(req, "saleId", sale.ID.String())
	resp := httptest.NewRecorder()

	RecordPayment(svc, nil)(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var envelope types.SuccessEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]any)
	assert.Equal(t, "completed", data["status"])
}

func TestVoidSalePassesSanitizedReason(t *testing.T) {
	sale := sampleSale()
	sale.Status = enums.SaleStatusCancelled
	var gotReason string
	svc := &fakeSalesService{
		voidFn: func(_ context.Context, _ uuid.UUID, reason string) (*models.Sale, error) {
			gotReason = reason
			return sale, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/"+sale.ID.String()+"/void",
		strings.NewReader(`{"reason":"  financing fell through  "}`))
	req = withURLParam(req, "saleId", sale.ID.String())
	resp := httptest.NewRecorder()

	VoidSale(svc, nil)(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "financing fell through", gotReason)
}
