package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdantlab/floralog/internal/httputil"
)

// statsHandler returns a handler that serves the dashboard payload.
func statsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, stats)
	}
}

// analyticsHandler returns a handler that serves the reports aggregation,
// narrowed by timeRange, locationId, and species query parameters.
func analyticsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := AnalyticsFilter{
			TimeRange:  r.URL.Query().Get("timeRange"),
			LocationID: r.URL.Query().Get("locationId"),
			Species:    r.URL.Query().Get("species"),
		}
		analytics, err := store.Analytics(r.Context(), filter)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, analytics)
	}
}

// NewRouter creates a chi router with the dashboard routes.
func NewRouter(store *Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", statsHandler(store))
	return r
}

// NewReportsRouter creates a chi router with the reports routes.
func NewReportsRouter(store *Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/analytics", analyticsHandler(store))
	return r
}
