package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"trading-academy-platform/internal/infra/logging"
	"trading-academy-platform/internal/usecase"
)

// WebhookSecrets are the per-provider signing secrets used to authenticate
// inbound deliveries before any state is touched.
type WebhookSecrets struct {
	Stripe   string
	Cashfree string
}

type Server struct {
	checkoutUC  usecase.CheckoutUseCase
	reconcileUC usecase.ReconcileUseCase
	notifUC     usecase.NotificationUseCase
	leadUC      usecase.LeadUseCase
	secrets     WebhookSecrets
	adminKey    string
	auth        *AuthManager
	dev         bool
	log         *zerolog.Logger
}

func NewServer(
	checkoutUC usecase.CheckoutUseCase,
	reconcileUC usecase.ReconcileUseCase,
	notifUC usecase.NotificationUseCase,
	leadUC usecase.LeadUseCase,
	secrets WebhookSecrets,
	adminKey string,
	auth *AuthManager,
	dev bool,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		checkoutUC:  checkoutUC,
		reconcileUC: reconcileUC,
		notifUC:     notifUC,
		leadUC:      leadUC,
		secrets:     secrets,
		adminKey:    adminKey,
		auth:        auth,
		dev:         dev,
		log:         &l,
	}
}

// Routes builds the full HTTP surface: checkout wizard, order polling,
// provider webhooks, lead capture and the guarded notification endpoint.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogContext)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout/session", s.startEnrollmentHandler())
		r.Post("/checkout/subscription", s.startSubscriptionHandler())
		r.Post("/checkout/{sessionID}/event", s.applyEventHandler())
		r.Post("/checkout/{sessionID}/pay", s.payHandler())
		r.Get("/checkout/{sessionID}", s.flowStateHandler())

		r.Get("/orders/{orderID}", s.orderStatusHandler())
		r.Post("/leads", s.leadHandler())

		r.Post("/webhooks/stripe", s.stripeWebhookHandler())
		r.Post("/webhooks/cashfree", s.cashfreeWebhookHandler())

		r.Route("/admin/auth", func(r chi.Router) {
			r.Post("/login", s.adminLoginHandler())
			r.Post("/logout", s.adminLogoutHandler())
		})

		r.With(s.auth.Middleware).Post("/notifications/send", s.sendNotificationHandler())
	})
	return r
}

// requestLogContext carries the chi request id into the logging context so
// every log line emitted below the handler can be tied to its delivery.
func requestLogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = logging.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
