package association

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/fleetops/fleet-registry/pkg/apierror"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// ListFilter holds the tenant-scoped listing parameters. AccountID is bound
// by the caller of List and is never optional.
type ListFilter struct {
	ResourceID     string
	AssignmentType AssignmentType
	Active         *bool
	GroupID        string
	Search         string

	Page      int    // 1-based; defaults to 1
	Limit     int    // 1..100; defaults to 10
	SortBy    string // whitelisted key, e.g. "startedAt" or "driver.fullName"
	SortOrder string // "asc" or "desc"; defaults to "desc"
}

// Page is one page of association rows with pagination bookkeeping.
type Page struct {
	Data       []Association
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// sortKey maps an API sort key onto a column and the join it requires.
type sortKey struct {
	column       string
	joinResource bool
	joinGroup    bool
}

var driverSortKeys = map[string]sortKey{
	"startedAt":        {column: "associations.started_at"},
	"endedAt":          {column: "associations.ended_at"},
	"createdAt":        {column: "associations.created_at"},
	"updatedAt":        {column: "associations.updated_at"},
	"assignmentType":   {column: "associations.assignment_type"},
	"active":           {column: "associations.active"},
	"driver.fullName":  {column: "drivers.full_name", joinResource: true},
	"driver.cpf":       {column: "drivers.cpf", joinResource: true},
	"driver.cnhNumber": {column: "drivers.cnh_number", joinResource: true},
}

var vehicleSortKeys = map[string]sortKey{
	"startedAt":      {column: "associations.started_at"},
	"endedAt":        {column: "associations.ended_at"},
	"createdAt":      {column: "associations.created_at"},
	"updatedAt":      {column: "associations.updated_at"},
	"assignmentType": {column: "associations.assignment_type"},
	"active":         {column: "associations.active"},
	"vehicle.plate":  {column: "vehicles.plate", joinResource: true},
	"vehicle.brand":  {column: "vehicles.brand", joinResource: true},
	"vehicle.model":  {column: "vehicles.model", joinResource: true},
	"group.name":     {column: "vehicle_groups.name", joinGroup: true},
}

// QueryService lists associations for exactly one tenant at a time, with
// filtering, whitelisted sorting (direct fields or one joined level) and
// offset pagination. Sort keys outside the whitelist are rejected rather than
// interpolated into the query.
type QueryService struct {
	kind  Kind
	store *Store
}

// NewQueryService creates the query service for a resource kind.
func NewQueryService(kind Kind, store *Store) *QueryService {
	return &QueryService{kind: kind, store: store}
}

func (q *QueryService) sortKeys() map[string]sortKey {
	if q.kind == KindVehicle {
		return vehicleSortKeys
	}
	return driverSortKeys
}

func (q *QueryService) defaultSort() string {
	if q.kind == KindVehicle {
		return "createdAt"
	}
	return "startedAt"
}

// List returns one page of the account's associations.
func (q *QueryService) List(ctx context.Context, accountID string, f ListFilter) (*Page, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = q.defaultSort()
	}
	key, ok := q.sortKeys()[sortBy]
	if !ok {
		return nil, apierror.InvalidField("unknown sort key %q", sortBy)
	}
	order, err := sortDirection(f.SortOrder)
	if err != nil {
		return nil, err
	}

	if f.AssignmentType != "" && !f.AssignmentType.Valid() {
		return nil, apierror.InvalidField("unknown assignment type %q", f.AssignmentType)
	}
	if f.GroupID != "" && q.kind != KindVehicle {
		return nil, apierror.InvalidField("groups apply to vehicle associations only")
	}

	base := q.store.db.WithContext(ctx).Model(&Association{}).
		Where("associations.resource_kind = ? AND associations.account_id = ?", q.kind, accountID)

	if f.ResourceID != "" {
		base = base.Where("associations.resource_id = ?", f.ResourceID)
	}
	if f.AssignmentType != "" {
		base = base.Where("associations.assignment_type = ?", f.AssignmentType)
	}
	if f.Active != nil {
		base = base.Where("associations.active = ?", *f.Active)
	}
	if f.GroupID != "" {
		base = base.Where("associations.group_id = ?", f.GroupID)
	}

	needResourceJoin := key.joinResource || f.Search != ""
	if needResourceJoin {
		base = base.Joins(q.resourceJoin())
	}
	if key.joinGroup {
		base = base.Joins("LEFT JOIN vehicle_groups ON vehicle_groups.id = associations.group_id")
	}
	if f.Search != "" {
		base = base.Where(q.searchClause(), q.searchArgs(f.Search)...)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count associations: %w", err)
	}

	var rows []Association
	err = withJoins(base.Select("associations.*"), q.kind).
		Order(fmt.Sprintf("%s %s", key.column, order)).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &Page{
		Data:       rows,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func (q *QueryService) resourceJoin() string {
	if q.kind == KindVehicle {
		return "JOIN vehicles ON vehicles.id = associations.resource_id"
	}
	return "JOIN drivers ON drivers.id = associations.resource_id"
}

// searchClause matches the free-text search against the joined resource's
// identifying fields, case-insensitively.
func (q *QueryService) searchClause() string {
	if q.kind == KindVehicle {
		return "(LOWER(vehicles.plate) LIKE ? OR LOWER(vehicles.brand) LIKE ? OR LOWER(vehicles.model) LIKE ?)"
	}
	return "(LOWER(drivers.full_name) LIKE ? OR LOWER(drivers.cpf) LIKE ? OR LOWER(drivers.cnh_number) LIKE ?)"
}

func (q *QueryService) searchArgs(search string) []any {
	pattern := "%" + strings.ToLower(search) + "%"
	return []any{pattern, pattern, pattern}
}

func sortDirection(order string) (string, error) {
	switch strings.ToLower(order) {
	case "", "desc":
		return "DESC", nil
	case "asc":
		return "ASC", nil
	}
	return "", apierror.InvalidField("sort order must be \"asc\" or \"desc\"")
}
