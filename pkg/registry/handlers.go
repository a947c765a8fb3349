package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fleetops/fleet-registry/pkg/apierror"
	"github.com/fleetops/fleet-registry/pkg/tenancy"
)

// ResourceGuard authorizes ownership-sensitive operations on a resource:
// physical edits and deletion. Satisfied by association.Ownership.
type ResourceGuard interface {
	AuthorizePhysicalEdit(ctx context.Context, resourceID, accountID string) error
	DeleteResource(ctx context.Context, resourceID, accountID string) error
}

// ---- accounts ----

type accountPayload struct {
	CompanyName string `json:"companyName"`
	Document    string `json:"document"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

type accountResponse struct {
	ID          string `json:"id"`
	CompanyName string `json:"companyName"`
	Document    string `json:"document"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func accountToResponse(a *Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		CompanyName: a.CompanyName,
		Document:    a.Document,
		Email:       a.Email,
		Phone:       a.Phone,
		CreatedAt:   a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// CreateAccountHandler handles POST /accounts.
func CreateAccountHandler(store *AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body accountPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if strings.TrimSpace(body.CompanyName) == "" || strings.TrimSpace(body.Document) == "" {
			writeError(w, http.StatusBadRequest, "companyName and document are required")
			return
		}

		account := &Account{
			ID:          uuid.NewString(),
			CompanyName: body.CompanyName,
			Document:    body.Document,
			Email:       body.Email,
			Phone:       body.Phone,
		}
		if err := store.Create(r.Context(), account); err != nil {
			writeStoreError(w, err, "account with this document already exists")
			return
		}
		writeJSON(w, http.StatusCreated, accountToResponse(account))
	}
}

// GetAccountHandler handles GET /accounts/{accountId}.
func GetAccountHandler(store *AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "accountId")
		account, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get account: %v", err))
			return
		}
		if account == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("account %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, accountToResponse(account))
	}
}

// UpdateAccountHandler handles PATCH /accounts/{accountId}.
func UpdateAccountHandler(store *AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "accountId")
		existing, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get account: %v", err))
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("account %q not found", id))
			return
		}

		var body accountPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if body.CompanyName != "" {
			existing.CompanyName = body.CompanyName
		}
		if body.Email != "" {
			existing.Email = body.Email
		}
		if body.Phone != "" {
			existing.Phone = body.Phone
		}

		if err := store.Update(r.Context(), existing); err != nil {
			writeStoreError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, accountToResponse(existing))
	}
}

// DeleteAccountHandler handles DELETE /accounts/{accountId}.
func DeleteAccountHandler(store *AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "accountId")
		if err := store.Delete(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete account: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListAccountsHandler handles GET /accounts.
func ListAccountsHandler(store *AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search, offset, limit, page, err := listParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		accounts, total, err := store.List(r.Context(), search, offset, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list accounts: %v", err))
			return
		}
		data := make([]accountResponse, len(accounts))
		for i := range accounts {
			data[i] = accountToResponse(&accounts[i])
		}
		writeListPage(w, data, total, page, limit)
	}
}

// ---- drivers ----

type driverPayload struct {
	FullName    string `json:"fullName"`
	CPF         string `json:"cpf"`
	CNHNumber   string `json:"cnhNumber"`
	CNHCategory string `json:"cnhCategory"`
	Phone       string `json:"phone"`
}

type driverResponse struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	CPF         string `json:"cpf"`
	CNHNumber   string `json:"cnhNumber"`
	CNHCategory string `json:"cnhCategory,omitempty"`
	Phone       string `json:"phone,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func driverToResponse(d *Driver) driverResponse {
	return driverResponse{
		ID:          d.ID,
		FullName:    d.FullName,
		CPF:         d.CPF,
		CNHNumber:   d.CNHNumber,
		CNHCategory: d.CNHCategory,
		Phone:       d.Phone,
		CreatedAt:   d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   d.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// CreateDriverHandler handles POST /drivers.
func CreateDriverHandler(store *DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body driverPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if strings.TrimSpace(body.FullName) == "" || strings.TrimSpace(body.CPF) == "" ||
			strings.TrimSpace(body.CNHNumber) == "" {
			writeError(w, http.StatusBadRequest, "fullName, cpf and cnhNumber are required")
			return
		}

		driver := &Driver{
			ID:          uuid.NewString(),
			FullName:    body.FullName,
			CPF:         body.CPF,
			CNHNumber:   body.CNHNumber,
			CNHCategory: body.CNHCategory,
			Phone:       body.Phone,
		}
		if err := store.Create(r.Context(), driver); err != nil {
			writeStoreError(w, err, "driver with this cpf or cnh number already exists")
			return
		}
		writeJSON(w, http.StatusCreated, driverToResponse(driver))
	}
}

// GetDriverHandler handles GET /drivers/{driverId}.
func GetDriverHandler(store *DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "driverId")
		driver, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get driver: %v", err))
			return
		}
		if driver == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("driver %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, driverToResponse(driver))
	}
}

// UpdateDriverHandler handles PATCH /drivers/{driverId}. CPF and CNH number
// are natural keys and cannot be changed here.
func UpdateDriverHandler(store *DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "driverId")
		existing, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get driver: %v", err))
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("driver %q not found", id))
			return
		}

		var body driverPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if body.FullName != "" {
			existing.FullName = body.FullName
		}
		if body.CNHCategory != "" {
			existing.CNHCategory = body.CNHCategory
		}
		if body.Phone != "" {
			existing.Phone = body.Phone
		}

		if err := store.Update(r.Context(), existing); err != nil {
			writeStoreError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, driverToResponse(existing))
	}
}

// DeleteDriverHandler handles DELETE /drivers/{driverId}. Deletion goes
// through the ownership guard: only the fleet owner may delete, and only when
// no other account holds an active association. Associations cascade.
func DeleteDriverHandler(guard ResourceGuard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		id := chi.URLParam(r, "driverId")

		if err := guard.DeleteResource(r.Context(), id, accountID); err != nil {
			writeGuardError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListDriversHandler handles GET /drivers.
func ListDriversHandler(store *DriverStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search, offset, limit, page, err := listParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		drivers, total, err := store.List(r.Context(), search, offset, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list drivers: %v", err))
			return
		}
		data := make([]driverResponse, len(drivers))
		for i := range drivers {
			data[i] = driverToResponse(&drivers[i])
		}
		writeListPage(w, data, total, page, limit)
	}
}

// ---- vehicles ----

type vehiclePayload struct {
	Plate string `json:"plate"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Color string `json:"color"`
}

type vehicleResponse struct {
	ID        string `json:"id"`
	Plate     string `json:"plate"`
	Brand     string `json:"brand,omitempty"`
	Model     string `json:"model,omitempty"`
	Year      int    `json:"year,omitempty"`
	Color     string `json:"color,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func vehicleToResponse(v *Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:        v.ID,
		Plate:     v.Plate,
		Brand:     v.Brand,
		Model:     v.Model,
		Year:      v.Year,
		Color:     v.Color,
		CreatedAt: v.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: v.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// CreateVehicleHandler handles POST /vehicles.
func CreateVehicleHandler(store *VehicleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body vehiclePayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if strings.TrimSpace(body.Plate) == "" {
			writeError(w, http.StatusBadRequest, "plate is required")
			return
		}

		vehicle := &Vehicle{
			ID:    uuid.NewString(),
			Plate: body.Plate,
			Brand: body.Brand,
			Model: body.Model,
			Year:  body.Year,
			Color: body.Color,
		}
		if err := store.Create(r.Context(), vehicle); err != nil {
			writeStoreError(w, err, "vehicle with this plate already exists")
			return
		}
		writeJSON(w, http.StatusCreated, vehicleToResponse(vehicle))
	}
}

// GetVehicleHandler handles GET /vehicles/{vehicleId}.
func GetVehicleHandler(store *VehicleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "vehicleId")
		vehicle, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get vehicle: %v", err))
			return
		}
		if vehicle == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("vehicle %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, vehicleToResponse(vehicle))
	}
}

// UpdateVehicleHandler handles PATCH /vehicles/{vehicleId}. Physical data
// edits are guarded: with a fleet owner present only the owner may edit, and
// the plate is immutable.
func UpdateVehicleHandler(store *VehicleStore, guard ResourceGuard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		id := chi.URLParam(r, "vehicleId")

		existing, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get vehicle: %v", err))
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("vehicle %q not found", id))
			return
		}

		if err := guard.AuthorizePhysicalEdit(r.Context(), id, accountID); err != nil {
			writeGuardError(w, err)
			return
		}

		var body vehiclePayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if body.Brand != "" {
			existing.Brand = body.Brand
		}
		if body.Model != "" {
			existing.Model = body.Model
		}
		if body.Year != 0 {
			existing.Year = body.Year
		}
		if body.Color != "" {
			existing.Color = body.Color
		}

		if err := store.UpdatePhysical(r.Context(), existing); err != nil {
			writeStoreError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, vehicleToResponse(existing))
	}
}

// DeleteVehicleHandler handles DELETE /vehicles/{vehicleId}. Deletion goes
// through the ownership guard and cascades to the vehicle's associations.
func DeleteVehicleHandler(guard ResourceGuard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		id := chi.URLParam(r, "vehicleId")

		if err := guard.DeleteResource(r.Context(), id, accountID); err != nil {
			writeGuardError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListVehiclesHandler handles GET /vehicles.
func ListVehiclesHandler(store *VehicleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search, offset, limit, page, err := listParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		vehicles, total, err := store.List(r.Context(), search, offset, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list vehicles: %v", err))
			return
		}
		data := make([]vehicleResponse, len(vehicles))
		for i := range vehicles {
			data[i] = vehicleToResponse(&vehicles[i])
		}
		writeListPage(w, data, total, page, limit)
	}
}

// ---- vehicle groups ----

type groupPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type groupResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"accountId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func groupToResponse(g *VehicleGroup) groupResponse {
	return groupResponse{
		ID:          g.ID,
		AccountID:   g.AccountID,
		Name:        g.Name,
		Description: g.Description,
		CreatedAt:   g.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   g.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// CreateGroupHandler handles POST /vehicle-groups.
func CreateGroupHandler(store *GroupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())

		var body groupPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		group := &VehicleGroup{
			ID:          uuid.NewString(),
			AccountID:   accountID,
			Name:        body.Name,
			Description: body.Description,
		}
		if err := store.Create(r.Context(), group); err != nil {
			writeStoreError(w, err, "group with this name already exists for this account")
			return
		}
		writeJSON(w, http.StatusCreated, groupToResponse(group))
	}
}

// GetGroupHandler handles GET /vehicle-groups/{groupId}.
func GetGroupHandler(store *GroupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		id := chi.URLParam(r, "groupId")

		group, err := store.Get(r.Context(), id, accountID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get group: %v", err))
			return
		}
		if group == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("group %q not found", id))
			return
		}
		writeJSON(w, http.StatusOK, groupToResponse(group))
	}
}

// UpdateGroupHandler handles PATCH /vehicle-groups/{groupId}.
func UpdateGroupHandler(store *GroupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		id := chi.URLParam(r, "groupId")

		existing, err := store.Get(r.Context(), id, accountID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get group: %v", err))
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("group %q not found", id))
			return
		}

		var body groupPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if body.Name != "" {
			existing.Name = body.Name
		}
		if body.Description != "" {
			existing.Description = body.Description
		}

		if err := store.Update(r.Context(), existing); err != nil {
			writeStoreError(w, err, "group with this name already exists for this account")
			return
		}
		writeJSON(w, http.StatusOK, groupToResponse(existing))
	}
}

// DeleteGroupHandler handles DELETE /vehicle-groups/{groupId}.
func DeleteGroupHandler(store *GroupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())
		id := chi.URLParam(r, "groupId")

		if err := store.Delete(r.Context(), id, accountID); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete group: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListGroupsHandler handles GET /vehicle-groups.
func ListGroupsHandler(store *GroupStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := tenancy.AccountIDFromContext(r.Context())

		groups, err := store.List(r.Context(), accountID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list groups: %v", err))
			return
		}
		data := make([]groupResponse, len(groups))
		for i := range groups {
			data[i] = groupToResponse(&groups[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": data, "total": len(data)})
	}
}

// ---- shared helpers ----

func listParams(r *http.Request) (search string, offset, limit, page int, err error) {
	query := r.URL.Query()
	search = query.Get("search")
	page = 1
	if v := query.Get("page"); v != "" {
		p, convErr := strconv.Atoi(v)
		if convErr != nil {
			return "", 0, 0, 0, fmt.Errorf("page must be an integer")
		}
		if p > 0 {
			page = p
		}
	}
	limit = 10
	if v := query.Get("limit"); v != "" {
		l, convErr := strconv.Atoi(v)
		if convErr != nil {
			return "", 0, 0, 0, fmt.Errorf("limit must be an integer")
		}
		if l > 0 {
			limit = l
		}
	}
	if limit > 100 {
		limit = 100
	}
	offset = (page - 1) * limit
	return search, offset, limit, page, nil
}

func writeListPage[T any](w http.ResponseWriter, data []T, total int64, page, limit int) {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       data,
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages,
	})
}

// writeStoreError maps store failures: duplicate keys become 409 with the
// given message, missing rows 404, everything else 500.
func writeStoreError(w http.ResponseWriter, err error, duplicateMessage string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case isDuplicateKey(err) && duplicateMessage != "":
		writeError(w, http.StatusConflict, duplicateMessage)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeGuardError maps ownership guard failures using the shared taxonomy.
func writeGuardError(w http.ResponseWriter, err error) {
	writeError(w, apierror.HTTPStatus(err), err.Error())
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
