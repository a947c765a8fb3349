package association

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fleetops/fleet-registry/pkg/apierror"
	"github.com/fleetops/fleet-registry/pkg/registry"
)

func seedAssoc(t *testing.T, db *gorm.DB, a *Association) *Association {
	t.Helper()
	require.NoError(t, NewStore(db).Create(context.Background(), a))
	return a
}

func TestListDefaultsAndPaging(t *testing.T) {
	db := setupTestDB(t)
	qs := NewQueryService(KindDriver, NewStore(db))
	ctx := context.Background()

	acct := seedAccount(t, db, "Transportadora Um")
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		driver := seedDriver(t, db, "Motorista")
		a := newAssoc(KindDriver, driver.ID, acct.ID, AssignmentAggregated, true)
		a.StartedAt = base.Add(time.Duration(i) * time.Hour)
		seedAssoc(t, db, a)
	}

	// Default sort is startedAt descending.
	page, err := qs.List(ctx, acct.ID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageLimit, page.Limit)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Data, 3)
	assert.True(t, page.Data[0].StartedAt.After(page.Data[2].StartedAt))

	// Two per page: second page has the remainder.
	page, err = qs.List(ctx, acct.ID, ListFilter{Limit: 2, Page: 2, SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 1)
	assert.True(t, page.Data[0].StartedAt.Equal(base.Add(2 * time.Hour)))
}

func TestListFilters(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	qs := NewQueryService(KindVehicle, store)
	ctx := context.Background()

	acct := seedAccount(t, db, "Transportadora Um")
	other := seedAccount(t, db, "Transportadora Dois")
	group := &registry.VehicleGroup{ID: "grp-1", AccountID: acct.ID, Name: "Frota Sul"}
	require.NoError(t, registry.NewGroupStore(db).Create(ctx, group))

	v1 := seedVehicle(t, db, "AAA1A11")
	v2 := seedVehicle(t, db, "BBB2B22")
	v3 := seedVehicle(t, db, "CCC3C33")

	grouped := newAssoc(KindVehicle, v1.ID, acct.ID, AssignmentFleet, true)
	grouped.GroupID = &group.ID
	seedAssoc(t, db, grouped)
	seedAssoc(t, db, newAssoc(KindVehicle, v2.ID, acct.ID, AssignmentAggregated, false))
	seedAssoc(t, db, newAssoc(KindVehicle, v3.ID, other.ID, AssignmentAggregated, true))

	// Tenant isolation: other's row never shows up.
	page, err := qs.List(ctx, acct.ID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = qs.List(ctx, acct.ID, ListFilter{AssignmentType: AssignmentFleet})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, v1.ID, page.Data[0].ResourceID)

	active := false
	page, err = qs.List(ctx, acct.ID, ListFilter{Active: &active})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, v2.ID, page.Data[0].ResourceID)

	page, err = qs.List(ctx, acct.ID, ListFilter{ResourceID: v2.ID})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	page, err = qs.List(ctx, acct.ID, ListFilter{GroupID: group.ID})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.NotNil(t, page.Data[0].Group)
	assert.Equal(t, "Frota Sul", page.Data[0].Group.Name)
}

func TestListJoinedSortAndSearch(t *testing.T) {
	db := setupTestDB(t)
	qs := NewQueryService(KindDriver, NewStore(db))
	ctx := context.Background()

	acct := seedAccount(t, db, "Transportadora Um")
	carlos := seedDriver(t, db, "Carlos Lima")
	ana := seedDriver(t, db, "Ana Souza")
	bruno := seedDriver(t, db, "Bruno Alves")
	for _, d := range []*registry.Driver{carlos, ana, bruno} {
		seedAssoc(t, db, newAssoc(KindDriver, d.ID, acct.ID, AssignmentAggregated, true))
	}

	page, err := qs.List(ctx, acct.ID, ListFilter{SortBy: "driver.fullName", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Data, 3)
	assert.Equal(t, ana.ID, page.Data[0].ResourceID)
	assert.Equal(t, carlos.ID, page.Data[2].ResourceID)
	require.NotNil(t, page.Data[0].Driver, "joined rows carry their preloads")

	// Search matches the joined name, case-insensitively.
	page, err = qs.List(ctx, acct.ID, ListFilter{Search: "aNa"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, ana.ID, page.Data[0].ResourceID)
}

func TestListGroupNameSort(t *testing.T) {
	db := setupTestDB(t)
	qs := NewQueryService(KindVehicle, NewStore(db))
	ctx := context.Background()

	acct := seedAccount(t, db, "Transportadora Um")
	groups := registry.NewGroupStore(db)
	south := &registry.VehicleGroup{ID: "grp-s", AccountID: acct.ID, Name: "Frota Sul"}
	north := &registry.VehicleGroup{ID: "grp-n", AccountID: acct.ID, Name: "Frota Norte"}
	require.NoError(t, groups.Create(ctx, south))
	require.NoError(t, groups.Create(ctx, north))

	v1 := seedVehicle(t, db, "AAA1A11")
	v2 := seedVehicle(t, db, "BBB2B22")
	v3 := seedVehicle(t, db, "CCC3C33")

	a1 := newAssoc(KindVehicle, v1.ID, acct.ID, AssignmentAggregated, true)
	a1.GroupID = &south.ID
	a2 := newAssoc(KindVehicle, v2.ID, acct.ID, AssignmentAggregated, true)
	a2.GroupID = &north.ID
	seedAssoc(t, db, a1)
	seedAssoc(t, db, a2)
	// Ungrouped rows survive the LEFT JOIN.
	seedAssoc(t, db, newAssoc(KindVehicle, v3.ID, acct.ID, AssignmentAggregated, true))

	page, err := qs.List(ctx, acct.ID, ListFilter{SortBy: "group.name", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, page.Data, 3)
	assert.Equal(t, v1.ID, page.Data[0].ResourceID, "Frota Sul sorts after Frota Norte")
	assert.Equal(t, v2.ID, page.Data[1].ResourceID)
}

func TestListRejectsBadParameters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	acct := seedAccount(t, db, "Transportadora Um")

	driverQS := NewQueryService(KindDriver, NewStore(db))
	vehicleQS := NewQueryService(KindVehicle, NewStore(db))

	_, err := driverQS.List(ctx, acct.ID, ListFilter{SortBy: "driver.cpf; DROP TABLE associations"})
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeInvalidField))

	// Kind-specific keys do not leak across kinds.
	_, err = vehicleQS.List(ctx, acct.ID, ListFilter{SortBy: "driver.fullName"})
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeInvalidField))

	_, err = driverQS.List(ctx, acct.ID, ListFilter{SortOrder: "sideways"})
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeInvalidField))

	_, err = driverQS.List(ctx, acct.ID, ListFilter{AssignmentType: "OWNER"})
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeInvalidField))

	_, err = driverQS.List(ctx, acct.ID, ListFilter{GroupID: "grp-1"})
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeInvalidField))
}

func TestListCapsLimit(t *testing.T) {
	db := setupTestDB(t)
	qs := NewQueryService(KindDriver, NewStore(db))
	ctx := context.Background()
	acct := seedAccount(t, db, "Transportadora Um")

	page, err := qs.List(ctx, acct.ID, ListFilter{Limit: 10_000})
	require.NoError(t, err)
	assert.Equal(t, maxPageLimit, page.Limit)
}
