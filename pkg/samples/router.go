package samples

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with the plant-sample API routes. geocoder
// may be nil, in which case implicitly created locations carry coordinates
// only.
func NewRouter(store *Store, geocoder Geocoder) chi.Router {
	r := chi.NewRouter()

	r.Get("/", listHandler(store))
	r.Post("/", createHandler(store, geocoder))

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", getHandler(store))
		r.Put("/", updateHandler(store))
		r.Delete("/", deleteHandler(store))
	})

	return r
}
