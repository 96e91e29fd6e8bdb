package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/finlyapp/finly-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var conflict *domain.ErrConflict
	var unauthorized *domain.ErrUnauthorized
	var storage *domain.ErrStorage

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &storage):
		logger.Error("storage failure", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "storage unavailable, retry later")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ============================================================
// Response shapes — entities plus human-readable labels for the
// enumerated fields
// ============================================================

type transactionResponse struct {
	domain.Transaction
	TypeDisplay   string `json:"type_display"`
	MethodDisplay string `json:"method_display"`
}

func newTransactionResponse(t *domain.Transaction) transactionResponse {
	return transactionResponse{
		Transaction:   *t,
		TypeDisplay:   t.Type.Display(),
		MethodDisplay: t.Method.Display(),
	}
}

func newTransactionList(ts []domain.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(ts))
	for i := range ts {
		out[i] = newTransactionResponse(&ts[i])
	}
	return out
}

type paymentResponse struct {
	domain.ScheduledPayment
	StatusDisplay string `json:"status_display"`
}

func newPaymentResponse(p *domain.ScheduledPayment) paymentResponse {
	return paymentResponse{
		ScheduledPayment: *p,
		StatusDisplay:    p.Status.Display(),
	}
}

func newPaymentList(ps []domain.ScheduledPayment) []paymentResponse {
	out := make([]paymentResponse, len(ps))
	for i := range ps {
		out[i] = newPaymentResponse(&ps[i])
	}
	return out
}
