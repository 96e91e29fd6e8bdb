package handler

import (
	"net/http"
	"time"

	"github.com/finlyapp/finly-api/internal/domain"
	"github.com/finlyapp/finly-api/internal/infra/observability"
	"github.com/finlyapp/finly-api/internal/port"
	"github.com/finlyapp/finly-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.FinanceService, authSvc *service.AuthService, metrics *observability.Metrics, users port.Cache[domain.User], logger *zap.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(requestMetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(svc, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Auth (public)
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(authSvc, logger))
			r.Post("/login", authLoginHandler(authSvc, logger))
		})

		// =============================================
		// Finance resources (require a valid token)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, users, logger))

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", listTransactionsHandler(svc, logger))
				r.Post("/", createTransactionHandler(svc, logger))
				r.Get("/{id}", getTransactionHandler(svc, logger))
				r.Put("/{id}", updateTransactionHandler(svc, logger))
				r.Patch("/{id}", updateTransactionHandler(svc, logger))
				r.Delete("/{id}", deleteTransactionHandler(svc, logger))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", listPaymentsHandler(svc, logger))
				r.Post("/", createPaymentHandler(svc, logger))
				r.Get("/{id}", getPaymentHandler(svc, logger))
				r.Put("/{id}", updatePaymentHandler(svc, logger))
				r.Patch("/{id}", updatePaymentHandler(svc, logger))
				r.Delete("/{id}", deletePaymentHandler(svc, logger))
				r.Post("/{id}/mark-paid", markPaidHandler(svc, logger))
			})

			r.Route("/weeks", func(r chi.Router) {
				r.Get("/", listWeeksHandler(svc, logger))
				r.Post("/", createWeekHandler(svc, logger))
				r.Get("/{id}", getWeekHandler(svc, logger))
				r.Put("/{id}", updateWeekHandler(svc, logger))
				r.Patch("/{id}", updateWeekHandler(svc, logger))
				r.Delete("/{id}", deleteWeekHandler(svc, logger))
			})

			r.Route("/sync", func(r chi.Router) {
				r.Get("/pull", syncPullHandler(svc, logger))
				r.Post("/push", syncPushHandler(svc, logger))
			})

			r.Get("/metrics/sync", syncMetricsHandler(svc, logger))
		})
	})

	return r
}

// requestMetricsMiddleware records per-request duration and status
// counters.
func requestMetricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			metrics.RecordRequestDuration(r.Method+" "+r.URL.Path, time.Since(start))
			status := "success"
			if ww.Status() >= 400 {
				status = "error"
			}
			metrics.IncrRequest(status)
		})
	}
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Ready(r.Context()); err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
