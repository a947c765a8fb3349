package audit

import (
	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the audit API. All routes are scoped to the
// account resolved by the tenancy middleware upstream.
func Router(store *Store) chi.Router {
	r := chi.NewRouter()

	r.Get("/", ListEventsHandler(store))
	r.Get("/{eventId}", GetEventHandler(store))

	return r
}
