// Copyright 2025 James Ross
package obs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/awehrman/peas-sub008/internal/config"
)

// StartHTTPServer exposes /metrics plus liveness/readiness probes.
// readiness is a callback that should return nil when the app is ready.
// registerExtra, if non-nil, is called with the router before it binds,
// letting a caller mount additional route groups (e.g. the §6.1 metrics
// API) on the same listener instead of opening a second port.
func StartHTTPServer(cfg *config.Config, readiness func(context.Context) error, registerExtra ...func(*mux.Router)) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	for _, register := range registerExtra {
		if register != nil {
			register(r)
		}
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if readiness == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		if err := readiness(r.Context()); err != nil {
			http.Error(w, fmt.Sprintf("not ready: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Observability.MetricsPort), Handler: r}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
