package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opslog-io/opslog-backend/api/controllers"
	"github.com/opslog-io/opslog-backend/api/middleware"
	"github.com/opslog-io/opslog-backend/internal/webhooks"
	"github.com/opslog-io/opslog-backend/pkg/config"
	"github.com/opslog-io/opslog-backend/pkg/logger"
)

// RouterParams carry everything the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              controllers.Pinger
	Redis           controllers.Pinger
	WebhooksService webhooks.Service
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger
	svc := params.WebhooksService

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/tenants/{tenantID}/webhooks", func(r chi.Router) {
		r.Use(middleware.TenantContext(logg))

		r.Post("/", controllers.CreateWebhook(svc, logg))
		r.Get("/", controllers.ListWebhooks(svc, logg))

		r.Route("/{endpointID}", func(r chi.Router) {
			r.Get("/", controllers.GetWebhook(svc, logg))
			r.Patch("/", controllers.UpdateWebhook(svc, logg))
			r.Delete("/", controllers.DeleteWebhook(svc, logg))
			r.Put("/active", controllers.SetWebhookActive(svc, logg))
			r.Post("/test", controllers.TestWebhook(svc, logg))
			r.Get("/deliveries", controllers.ListWebhookDeliveries(svc, logg))
			r.Get("/stats", controllers.WebhookStats(svc, logg))
		})
	})

	return r
}
