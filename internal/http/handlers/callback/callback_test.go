package callback

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-payments/internal/models"
	"github.com/magabrotheeeer/subscription-payments/internal/paymentprovider"
	"github.com/magabrotheeeer/subscription-payments/internal/services/reconcile"
)

// MockVerifier реализует интерфейс callback.Verifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Name() string { return "mock" }

func (m *MockVerifier) VerifyCallback(body []byte) (*paymentprovider.Event, error) {
	args := m.Called(body)
	event, _ := args.Get(0).(*paymentprovider.Event)
	return event, args.Error(1)
}

// MockService реализует интерфейс callback.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ProcessEvent(ctx context.Context, event *paymentprovider.Event) error {
	return m.Called(ctx, event).Error(0)
}

func TestCallbackHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	paidEvent := &paymentprovider.Event{
		TxnID:       "txn-42",
		OrderNumber: "alice-1700000000000",
		Status:      models.InvoiceStatusPaid,
		RawStatus:   "completed",
	}

	tests := []struct {
		name           string
		body           string
		setupMocks     func(verifier *MockVerifier, service *MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная оплата",
			body: `{"status":"completed"}`,
			setupMocks: func(verifier *MockVerifier, service *MockService) {
				verifier.On("VerifyCallback", []byte(`{"status":"completed"}`)).Return(paidEvent, nil)
				service.On("ProcessEvent", mock.Anything, paidEvent).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "OK",
		},
		{
			name: "неверная подпись",
			body: `{"status":"completed"}`,
			setupMocks: func(verifier *MockVerifier, _ *MockService) {
				verifier.On("VerifyCallback", mock.Anything).
					Return((*paymentprovider.Event)(nil), paymentprovider.ErrBadSignature)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "Invalid signature",
		},
		{
			name: "нечитаемое тело",
			body: "not a json",
			setupMocks: func(verifier *MockVerifier, _ *MockService) {
				verifier.On("VerifyCallback", mock.Anything).
					Return((*paymentprovider.Event)(nil), errors.New("invalid character 'o'"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Bad request",
		},
		{
			name: "неизвестный счёт",
			body: `{"status":"completed"}`,
			setupMocks: func(verifier *MockVerifier, service *MockService) {
				verifier.On("VerifyCallback", mock.Anything).Return(paidEvent, nil)
				service.On("ProcessEvent", mock.Anything, paidEvent).Return(reconcile.ErrInvoiceNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "Invoice not found",
		},
		{
			name: "ошибка хранилища",
			body: `{"status":"completed"}`,
			setupMocks: func(verifier *MockVerifier, service *MockService) {
				verifier.On("VerifyCallback", mock.Anything).Return(paidEvent, nil)
				service.On("ProcessEvent", mock.Anything, paidEvent).Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := new(MockVerifier)
			service := new(MockService)
			tt.setupMocks(verifier, service)

			handler := New(logger, verifier, service)

			req := httptest.NewRequest(http.MethodPost, "/plisio-callback", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			verifier.AssertExpectations(t)
			service.AssertExpectations(t)
		})
	}
}
