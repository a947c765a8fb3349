package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fleetops/fleet-registry/pkg/apierror"
	"github.com/fleetops/fleet-registry/pkg/tenancy"
)

// fakeGuard stands in for the ownership guard; the real guard has its own
// tests next to the association engine.
type fakeGuard struct {
	editErr   error
	deleteErr error
	deleted   []string
}

func (g *fakeGuard) AuthorizePhysicalEdit(_ context.Context, _, _ string) error {
	return g.editErr
}

func (g *fakeGuard) DeleteResource(_ context.Context, resourceID, _ string) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, resourceID)
	return nil
}

func mountRegistry(t *testing.T, db *gorm.DB, driverGuard, vehicleGuard ResourceGuard) http.Handler {
	t.Helper()
	routers := NewRouters(
		NewAccountStore(db), NewDriverStore(db), NewVehicleStore(db), NewGroupStore(db),
		driverGuard, vehicleGuard,
	)
	r := chi.NewRouter()
	r.Use(tenancy.Middleware(tenancy.HeaderResolver{}))
	r.Mount("/accounts", routers.Accounts)
	r.Mount("/drivers", routers.Drivers)
	r.Mount("/vehicles", routers.Vehicles)
	r.Mount("/vehicle-groups", routers.Groups)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, accountID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accountID != "" {
		req.Header.Set(tenancy.AccountHeader, accountID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAccountEndpoints(t *testing.T) {
	h := mountRegistry(t, setupTestDB(t), &fakeGuard{}, &fakeGuard{})

	rec := doRequest(t, h, http.MethodPost, "/accounts", "caller", map[string]string{
		"companyName": "Transportadora Um",
		"document":    "12.345.678/0001-90",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	// Required fields.
	rec = doRequest(t, h, http.MethodPost, "/accounts", "caller", map[string]string{
		"companyName": "Sem Documento",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Duplicate document.
	rec = doRequest(t, h, http.MethodPost, "/accounts", "caller", map[string]string{
		"companyName": "Clone",
		"document":    "12.345.678/0001-90",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/accounts/"+created.ID, "caller", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/accounts/missing", "caller", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodPatch, "/accounts/"+created.ID, "caller", map[string]string{
		"email": "novo@um.example",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var patched struct {
		Email       string `json:"email"`
		CompanyName string `json:"companyName"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patched))
	assert.Equal(t, "novo@um.example", patched.Email)
	assert.Equal(t, "Transportadora Um", patched.CompanyName, "absent fields untouched")

	rec = doRequest(t, h, http.MethodGet, "/accounts?search=transportadora", "caller", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)

	rec = doRequest(t, h, http.MethodGet, "/accounts?page=abc", "caller", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(t, h, http.MethodGet, "/accounts?limit=abc", "caller", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVehicleUpdateIsGuarded(t *testing.T) {
	db := setupTestDB(t)
	vehicleGuard := &fakeGuard{}
	h := mountRegistry(t, db, &fakeGuard{}, vehicleGuard)

	vehicle := &Vehicle{ID: uuid.NewString(), Plate: "ABC1D23", Brand: "Volvo"}
	require.NoError(t, NewVehicleStore(db).Create(context.Background(), vehicle))

	rec := doRequest(t, h, http.MethodPatch, "/vehicles/"+vehicle.ID, "acct-1", map[string]any{
		"color": "Prata",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		Plate string `json:"plate"`
		Brand string `json:"brand"`
		Color string `json:"color"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Prata", updated.Color)
	assert.Equal(t, "Volvo", updated.Brand)
	assert.Equal(t, "ABC1D23", updated.Plate, "plate is immutable")

	// A rejected guard surfaces its status.
	vehicleGuard.editErr = apierror.Forbidden("only the fleet owner may edit this resource's physical data")
	rec = doRequest(t, h, http.MethodPatch, "/vehicles/"+vehicle.ID, "acct-2", map[string]any{
		"color": "Preto",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, h, http.MethodPatch, "/vehicles/missing", "acct-1", map[string]any{
		"color": "Preto",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResourceDeletionGoesThroughGuard(t *testing.T) {
	db := setupTestDB(t)
	driverGuard := &fakeGuard{}
	vehicleGuard := &fakeGuard{deleteErr: apierror.Forbidden("only the fleet owner may delete this resource")}
	h := mountRegistry(t, db, driverGuard, vehicleGuard)

	rec := doRequest(t, h, http.MethodDelete, "/drivers/drv-1", "acct-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"drv-1"}, driverGuard.deleted)

	rec = doRequest(t, h, http.MethodDelete, "/vehicles/veh-1", "acct-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGroupEndpointsAreTenantScoped(t *testing.T) {
	h := mountRegistry(t, setupTestDB(t), &fakeGuard{}, &fakeGuard{})

	rec := doRequest(t, h, http.MethodPost, "/vehicle-groups", "acct-1", map[string]string{
		"name": "Frota Sul",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID        string `json:"id"`
		AccountID string `json:"accountId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "acct-1", created.AccountID)

	// The owner sees it; other tenants get a 404.
	rec = doRequest(t, h, http.MethodGet, "/vehicle-groups/"+created.ID, "acct-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, h, http.MethodGet, "/vehicle-groups/"+created.ID, "acct-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Same name in another tenant is fine; in the same tenant it conflicts.
	rec = doRequest(t, h, http.MethodPost, "/vehicle-groups", "acct-2", map[string]string{
		"name": "Frota Sul",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, h, http.MethodPost, "/vehicle-groups", "acct-1", map[string]string{
		"name": "Frota Sul",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/vehicle-groups", "acct-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
}
