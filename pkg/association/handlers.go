package association

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetops/fleet-registry/pkg/apierror"
	"github.com/fleetops/fleet-registry/pkg/tenancy"
)

// addOrUpdateRequest is the request body for creating or refreshing an
// association. Either driverId or vehicleId carries the resource id,
// depending on which router received the request.
type addOrUpdateRequest struct {
	DriverID       string  `json:"driverId"`
	VehicleID      string  `json:"vehicleId"`
	AssignmentType string  `json:"assignmentType"`
	Active         *bool   `json:"active"`
	StartedAt      *string `json:"startedAt"`
	EndedAt        *string `json:"endedAt"`
	GroupID        *string `json:"groupId"`
}

func (req *addOrUpdateRequest) toRequest(kind Kind) (Request, error) {
	resourceID := req.DriverID
	if kind == KindVehicle {
		resourceID = req.VehicleID
	}

	out := Request{
		ResourceID:     resourceID,
		AssignmentType: AssignmentType(req.AssignmentType),
		Active:         true,
		GroupID:        req.GroupID,
	}
	if req.Active != nil {
		out.Active = *req.Active
	}
	if req.StartedAt != nil {
		t, err := parseTime(*req.StartedAt)
		if err != nil {
			return Request{}, apierror.InvalidField("startedAt: %v", err)
		}
		out.StartedAt = &t
	}
	if req.EndedAt != nil {
		t, err := parseTime(*req.EndedAt)
		if err != nil {
			return Request{}, apierror.InvalidField("endedAt: %v", err)
		}
		out.EndedAt = &t
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be an RFC3339 timestamp")
	}
	return t.UTC(), nil
}

// AddOrUpdateHandler handles POST /.
func AddOrUpdateHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())

		var body addOrUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeAPIError(w, apierror.InvalidField("invalid request body: %v", err))
			return
		}
		req, err := body.toRequest(m.Kind())
		if err != nil {
			writeAPIError(w, err)
			return
		}

		assoc, err := m.AddOrUpdate(r.Context(), accountID, req)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, assocToResponse(assoc))
	}
}

// GetHandler handles GET /{associationId}.
func GetHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		id := chi.URLParam(r, "associationId")

		assoc, err := m.GetByID(r.Context(), id, accountID)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, assocToResponse(assoc))
	}
}

// UpdateHandler handles PATCH /{associationId}. Absent fields are left
// untouched; an explicit null clears endedAt or groupId.
func UpdateHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		id := chi.URLParam(r, "associationId")

		patch, err := decodePatch(r)
		if err != nil {
			writeAPIError(w, err)
			return
		}

		assoc, err := m.Update(r.Context(), id, accountID, patch)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, assocToResponse(assoc))
	}
}

// DeactivateHandler handles POST /{associationId}/deactivate.
func DeactivateHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		id := chi.URLParam(r, "associationId")

		assoc, err := m.Deactivate(r.Context(), id, accountID)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, assocToResponse(assoc))
	}
}

// RemoveHandler handles DELETE /{associationId}.
func RemoveHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		id := chi.URLParam(r, "associationId")

		if err := m.Remove(r.Context(), id, accountID); err != nil {
			writeAPIError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListHandler handles GET /.
// Query params: driverId/vehicleId, assignmentType, active, groupId, search,
// page, limit, sortBy, sortOrder.
func ListHandler(qs *QueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		query := r.URL.Query()

		resourceID := query.Get("driverId")
		if qs.kind == KindVehicle {
			resourceID = query.Get("vehicleId")
		}

		filter := ListFilter{
			ResourceID:     resourceID,
			AssignmentType: AssignmentType(query.Get("assignmentType")),
			GroupID:        query.Get("groupId"),
			Search:         query.Get("search"),
			SortBy:         query.Get("sortBy"),
			SortOrder:      query.Get("sortOrder"),
		}
		if v := query.Get("active"); v != "" {
			active, err := strconv.ParseBool(v)
			if err != nil {
				writeAPIError(w, apierror.InvalidField("active must be a boolean"))
				return
			}
			filter.Active = &active
		}
		if v := query.Get("page"); v != "" {
			page, err := strconv.Atoi(v)
			if err != nil {
				writeAPIError(w, apierror.InvalidField("page must be an integer"))
				return
			}
			filter.Page = page
		}
		if v := query.Get("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil {
				writeAPIError(w, apierror.InvalidField("limit must be an integer"))
				return
			}
			filter.Limit = limit
		}

		page, err := qs.List(r.Context(), accountID, filter)
		if err != nil {
			writeAPIError(w, err)
			return
		}

		data := make([]assocResponse, len(page.Data))
		for i := range page.Data {
			data[i] = assocToResponse(&page.Data[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":       data,
			"total":      page.Total,
			"page":       page.Page,
			"limit":      page.Limit,
			"totalPages": page.TotalPages,
		})
	}
}

// decodePatch parses a PATCH body, distinguishing absent fields from explicit
// nulls.
func decodePatch(r *http.Request) (Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return Patch{}, apierror.InvalidField("invalid request body: %v", err)
	}

	var patch Patch
	for field, value := range raw {
		isNull := string(value) == "null"
		switch field {
		case "assignmentType":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return Patch{}, apierror.InvalidField("assignmentType must be a string")
			}
			at := AssignmentType(s)
			patch.AssignmentType = &at
		case "active":
			// json.Unmarshal accepts null into a bool without touching it,
			// which would read as an explicit false.
			if isNull {
				return Patch{}, apierror.InvalidField("active must be a boolean")
			}
			var b bool
			if err := json.Unmarshal(value, &b); err != nil {
				return Patch{}, apierror.InvalidField("active must be a boolean")
			}
			patch.Active = &b
		case "startedAt":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return Patch{}, apierror.InvalidField("startedAt must be a string")
			}
			t, err := parseTime(s)
			if err != nil {
				return Patch{}, apierror.InvalidField("startedAt: %v", err)
			}
			patch.StartedAt = &t
		case "endedAt":
			if isNull {
				patch.ClearEndedAt = true
				continue
			}
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return Patch{}, apierror.InvalidField("endedAt must be a string")
			}
			t, err := parseTime(s)
			if err != nil {
				return Patch{}, apierror.InvalidField("endedAt: %v", err)
			}
			patch.EndedAt = &t
		case "groupId":
			if isNull {
				patch.ClearGroup = true
				continue
			}
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return Patch{}, apierror.InvalidField("groupId must be a string")
			}
			patch.GroupID = &s
		}
	}
	return patch, nil
}

// errorResponse is the JSON error body shared by the association endpoints.
type errorResponse struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	HoldingAccountID string `json:"holdingAccountId,omitempty"`
}

func writeAPIError(w http.ResponseWriter, err error) {
	status := apierror.HTTPStatus(err)
	resp := errorResponse{
		Code:    string(apierror.CodeOf(err)),
		Message: err.Error(),
	}
	if resp.Code == "" {
		resp.Code = "INTERNAL"
		resp.Message = "internal error"
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		resp.HoldingAccountID = apiErr.HoldingAccountID
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
