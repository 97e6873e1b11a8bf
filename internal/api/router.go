package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taekwondodev/go-BaaS-Client/internal/controller"
	"github.com/taekwondodev/go-BaaS-Client/internal/middleware"
)

type Routes struct {
	CallbackPath string
	Controller   controller.CallbackController
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
}

func SetupRoutes(r Routes) *http.ServeMux {
	router := http.NewServeMux()
	apply := applyMiddleware(r.Logger)

	router.Handle("GET "+r.CallbackPath, apply(r.Controller.Callback))
	router.Handle("GET /healthz", apply(r.Controller.Health))
	if r.Gatherer != nil {
		router.Handle("GET /metrics", promhttp.HandlerFor(r.Gatherer, promhttp.HandlerOpts{}))
	}

	return router
}

func applyMiddleware(log *slog.Logger) func(middleware.HandlerFunc) http.HandlerFunc {
	logging := middleware.LoggingMiddleware(log)
	return func(h middleware.HandlerFunc) http.HandlerFunc {
		return middleware.ErrorHandler(logging(h))
	}
}
