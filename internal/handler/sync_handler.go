package handler

import (
	"encoding/json"
	"net/http"

	"github.com/finlyapp/finly-api/internal/domain"
	"github.com/finlyapp/finly-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Sync — pull and push
// ============================================================

func syncPullHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	type pullResponse struct {
		Transactions []transactionResponse `json:"transactions"`
		Payments     []paymentResponse     `json:"payments"`
		Weeks        []domain.WeeklyPeriod `json:"weeks"`
		DebugInfo    domain.SyncDebugInfo  `json:"debug_info"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/sync/pull")
		defer span.End()

		snap, err := svc.Pull(ctx, UserIDFromContext(ctx), r.URL.Query().Get("since"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pullResponse{
			Transactions: newTransactionList(snap.Transactions),
			Payments:     newPaymentList(snap.Payments),
			Weeks:        snap.Weeks,
			DebugInfo:    snap.DebugInfo,
		})
	}
}

func syncPushHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sync/push")
		defer span.End()

		var req domain.SyncPushRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ack, err := svc.Push(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ack)
	}
}

func syncMetricsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/sync")
		defer span.End()

		writeJSON(w, http.StatusOK, svc.SyncMetrics())
	}
}
