package association

import (
	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for one association kind. Routes are scoped to
// the account resolved by the tenancy middleware upstream. The single-row
// kind additionally exposes DELETE; the history-preserving kind retires rows
// through the deactivate endpoint only.
func Router(m *Manager, qs *QueryService) chi.Router {
	r := chi.NewRouter()

	r.Get("/", ListHandler(qs))
	r.Post("/", AddOrUpdateHandler(m))
	r.Get("/{associationId}", GetHandler(m))
	r.Patch("/{associationId}", UpdateHandler(m))
	r.Post("/{associationId}/deactivate", DeactivateHandler(m))
	if m.Kind() == KindVehicle {
		r.Delete("/{associationId}", RemoveHandler(m))
	}

	return r
}
