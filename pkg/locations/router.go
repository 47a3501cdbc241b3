package locations

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with the sampling-location API routes.
func NewRouter(store *Store) chi.Router {
	r := chi.NewRouter()

	r.Get("/", listHandler(store))
	r.Post("/", createHandler(store))

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", getHandler(store))
		r.Put("/", updateHandler(store))
		r.Delete("/", deleteHandler(store))
	})

	return r
}
