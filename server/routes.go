package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.LoggingMiddleware))
	if s.config.GetMetricsEnabled() {
		s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	// Token exchange API
	s.RegisterRouteFunc("GET "+RouteExchange, ChainMiddleware(s.ExchangeHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("OPTIONS "+RouteExchange, ChainMiddleware(s.ExchangeHandler(), s.APIMiddleware()...))
}

// HealthHandler reports that the proxy is up.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
