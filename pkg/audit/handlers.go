package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fleetops/fleet-registry/pkg/tenancy"
)

// ListEventsHandler handles GET /audit-events.
// Query params: resourceKind, resourceId, action, pageSize, pageToken
func ListEventsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())

		filter := ListFilter{
			ResourceKind: r.URL.Query().Get("resourceKind"),
			ResourceID:   r.URL.Query().Get("resourceId"),
			Action:       r.URL.Query().Get("action"),
		}

		pageSize := 20
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		records, nextToken, total, err := store.ListForAccount(r.Context(), accountID, filter, pageSize, pageToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list audit events: %v", err))
			return
		}

		events := make([]eventResponse, len(records))
		for i, rec := range records {
			events[i] = recordToResponse(rec)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"events":        events,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// GetEventHandler handles GET /audit-events/{eventId}.
func GetEventHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		eventID := chi.URLParam(r, "eventId")
		if eventID == "" {
			writeError(w, http.StatusBadRequest, "missing event ID")
			return
		}

		record, err := store.GetForAccount(r.Context(), eventID, accountID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get audit event: %v", err))
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("audit event %q not found", eventID))
			return
		}

		writeJSON(w, http.StatusOK, recordToResponse(*record))
	}
}

// eventResponse is the API representation of an audit event.
type eventResponse struct {
	ID             string `json:"id"`
	AccountID      string `json:"accountId"`
	ResourceKind   string `json:"resourceKind"`
	ResourceID     string `json:"resourceId"`
	AssociationID  string `json:"associationId,omitempty"`
	Action         string `json:"action"`
	AssignmentType string `json:"assignmentType,omitempty"`
	Active         bool   `json:"active"`
	Actor          string `json:"actor,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

func recordToResponse(rec EventRecord) eventResponse {
	return eventResponse{
		ID:             rec.ID,
		AccountID:      rec.AccountID,
		ResourceKind:   rec.ResourceKind,
		ResourceID:     rec.ResourceID,
		AssociationID:  rec.AssociationID,
		Action:         rec.Action,
		AssignmentType: rec.AssignmentType,
		Active:         rec.Active,
		Actor:          rec.Actor,
		CreatedAt:      rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
