package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ecofy/backend/pkg/auth"
)

// HTTPMetrics are the per-request counters and latency histogram.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecofy_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecofy_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// instrument records request counts and latency. Routes are labelled by
// chi pattern, not raw path, to keep metric cardinality bounded.
func instrument(metrics *HTTPMetrics, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)

			metrics.Requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			metrics.Duration.WithLabelValues(route).Observe(elapsed.Seconds())

			log.Debug().
				Str("method", r.Method).
				Str("route", route).
				Int("status", ww.Status()).
				Dur("elapsed", elapsed).
				Msg("request served")
		})
	}
}

// NewRouter assembles the full HTTP surface.
func NewRouter(a *API, resolver auth.Resolver, metrics *HTTPMetrics, gatherer prometheus.Gatherer, log zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(instrument(metrics, log))
	r.Use(auth.Middleware(resolver, log))

	r.Get("/healthz", a.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/telemetry", a.IngestTelemetry)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", a.ListDevices)
			r.Post("/", a.RegisterDevice)
			r.Get("/{deviceId}", a.GetDevice)
			r.Patch("/{deviceId}", a.UpdateDevice)
			r.Delete("/{deviceId}", a.DeleteDevice)
			r.Get("/{deviceId}/telemetry", a.DeviceTelemetry)
		})

		r.Route("/containers", func(r chi.Router) {
			r.Get("/", a.ListContainers)
			r.Post("/", a.CreateContainer)
			r.Get("/{containerId}", a.GetContainer)
			r.Patch("/{containerId}", a.UpdateContainer)
			r.Delete("/{containerId}", a.DeleteContainer)
		})

		r.Route("/container-sites", func(r chi.Router) {
			r.Get("/", a.ListSites)
			r.Post("/", a.CreateSite)
			r.Get("/{siteId}", a.GetSite)
			r.Patch("/{siteId}", a.UpdateSite)
			r.Delete("/{siteId}", a.DeleteSite)
		})

		r.Route("/pickups", func(r chi.Router) {
			r.Get("/", a.ListPickups)
			r.Post("/", a.CreatePickup)
			r.Get("/statistics", a.PickupStatistics)
			r.Put("/{pickupId}/vehicle", a.AssignVehicle)
			r.Post("/{pickupId}/complete", a.CompletePickup)
			r.Delete("/{pickupId}", a.DeletePickup)
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", a.ListVehicles)
			r.Post("/", a.CreateVehicle)
			r.Delete("/{vehicleId}", a.DeleteVehicle)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", a.ListNotifications)
			r.Delete("/{notificationId}", a.DeleteNotification)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", a.ListUsers)
			r.Post("/", a.RegisterUser)
			r.Get("/{userId}", a.GetUser)
			r.Patch("/{userId}", a.UpdateUser)
			r.Put("/{userId}/status", a.SetUserStatus)
			r.Delete("/{userId}", a.DeleteUser)
			r.Get("/{userId}/notifications/sites", a.ListUserSiteNotifications)
			r.Get("/{userId}/notifications/collections", a.ListUserCollectionNotifications)
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", a.ListOrganizations)
			r.Get("/{orgId}", a.GetOrganization)
			r.Patch("/{orgId}", a.UpdateOrganization)
			r.Put("/{orgId}/status", a.SetOrganizationStatus)
		})

		r.Route("/client-companies", func(r chi.Router) {
			r.Get("/", a.ListClientCompanies)
			r.Get("/{clientId}", a.GetClientCompany)
			r.Put("/{clientId}/status", a.SetClientCompanyStatus)
		})

		r.Route("/disposal-requests", func(r chi.Router) {
			r.Get("/", a.ListDisposalRequests)
			r.Post("/", a.CreateDisposalRequest)
			r.Put("/{requestId}/status", a.UpdateDisposalRequestStatus)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/client-companies", a.ClientCompanyActivity)
			r.Get("/organizations", a.OrganizationActivity)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/route-sheet", a.RouteSheet)
			r.Get("/waste-transfer-act/{requestId}", a.WasteTransferAct)
		})
	})

	return r
}
