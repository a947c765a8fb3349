package audit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-registry/pkg/tenancy"
)

func mountAudit(t *testing.T, store *Store) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Use(tenancy.Middleware(tenancy.HeaderResolver{}))
	r.Mount("/audit-events", Router(store))
	return r
}

func getAudit(t *testing.T, h http.Handler, path, accountID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(tenancy.AccountHeader, accountID)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuditEndpoints(t *testing.T) {
	store := NewStore(setupTestDB(t))
	h := mountAudit(t, store)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	event := appendEvent(t, store, "acct-1", "add_or_update", base)
	appendEvent(t, store, "acct-1", "deactivate", base.Add(time.Minute))
	appendEvent(t, store, "acct-2", "add_or_update", base)

	rec := getAudit(t, h, "/audit-events/", "acct-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list struct {
		Events    []eventResponse `json:"events"`
		TotalSize int             `json:"totalSize"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.TotalSize, "scoped to the calling account")
	require.Len(t, list.Events, 2)
	assert.Equal(t, "deactivate", list.Events[0].Action, "newest first")

	rec = getAudit(t, h, "/audit-events/?action=add_or_update", "acct-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.TotalSize)

	rec = getAudit(t, h, "/audit-events/"+event.ID, "acct-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = getAudit(t, h, "/audit-events/"+event.ID, "acct-2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
