package ninefs

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminRouter builds the HTTP side channel a ninepfsd binary exposes
// alongside its 9P listener: a liveness probe and a Prometheus scrape
// endpoint. It is entirely separate from the 9P protocol itself.
func AdminRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
