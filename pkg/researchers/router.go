package researchers

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with the researcher API routes. revoker may
// be nil, in which case self-deletion leaves the external identity alone.
func NewRouter(store *Store, revoker IdentityRevoker) chi.Router {
	r := chi.NewRouter()

	r.Get("/", listHandler(store))
	r.Post("/", createHandler(store))
	r.Get("/me", meHandler(store))

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", getHandler(store))
		r.Put("/", updateHandler(store))
		r.Delete("/", deleteHandler(store, revoker))
	})

	return r
}
