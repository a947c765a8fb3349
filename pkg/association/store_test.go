package association

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fleetops/fleet-registry/pkg/apierror"
	"github.com/fleetops/fleet-registry/pkg/registry"
)

// setupTestDB opens an in-memory database with all tables and the partial
// unique indexes in place. The pool is capped at one connection so that
// concurrent transactions serialize instead of hitting SQLITE_BUSY.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&registry.Account{}, &registry.Driver{}, &registry.Vehicle{}, &registry.VehicleGroup{},
	))
	require.NoError(t, NewStore(db).AutoMigrate())
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, name string) *registry.Account {
	t.Helper()
	account := &registry.Account{
		ID:          uuid.NewString(),
		CompanyName: name,
		Document:    uuid.NewString()[:18],
	}
	require.NoError(t, registry.NewAccountStore(db).Create(context.Background(), account))
	return account
}

func seedDriver(t *testing.T, db *gorm.DB, name string) *registry.Driver {
	t.Helper()
	driver := &registry.Driver{
		ID:        uuid.NewString(),
		FullName:  name,
		CPF:       uuid.NewString()[:14],
		CNHNumber: uuid.NewString()[:16],
	}
	require.NoError(t, registry.NewDriverStore(db).Create(context.Background(), driver))
	return driver
}

func seedVehicle(t *testing.T, db *gorm.DB, plate string) *registry.Vehicle {
	t.Helper()
	vehicle := &registry.Vehicle{
		ID:    uuid.NewString(),
		Plate: plate,
		Brand: "Volvo",
		Model: "FH 540",
	}
	require.NoError(t, registry.NewVehicleStore(db).Create(context.Background(), vehicle))
	return vehicle
}

func seedGroup(t *testing.T, db *gorm.DB, accountID, name string) *registry.VehicleGroup {
	t.Helper()
	group := &registry.VehicleGroup{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Name:      name,
	}
	require.NoError(t, registry.NewGroupStore(db).Create(context.Background(), group))
	return group
}

func newAssoc(kind Kind, resourceID, accountID string, at AssignmentType, active bool) *Association {
	return &Association{
		ID:             uuid.NewString(),
		ResourceKind:   kind,
		ResourceID:     resourceID,
		AccountID:      accountID,
		AssignmentType: at,
		Active:         active,
		StartedAt:      time.Now().UTC(),
	}
}

func TestExclusiveIndexRejectsSecondActiveFleetRow(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	driver := seedDriver(t, db, "Ana Souza")
	acct1 := seedAccount(t, db, "Transportadora Um")
	acct2 := seedAccount(t, db, "Transportadora Dois")

	require.NoError(t, store.Create(ctx, newAssoc(KindDriver, driver.ID, acct1.ID, AssignmentFleet, true)))

	// A second active FLEET row for the same driver must fail at the index,
	// regardless of account.
	err := store.Create(ctx, newAssoc(KindDriver, driver.ID, acct2.ID, AssignmentFleet, true))
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeDuplicateAssociation))

	// Inactive FLEET and shared types are fine.
	require.NoError(t, store.Create(ctx, newAssoc(KindDriver, driver.ID, acct2.ID, AssignmentFleet, false)))
	require.NoError(t, store.Create(ctx, newAssoc(KindDriver, driver.ID, acct2.ID, AssignmentAggregated, true)))
}

func TestVehiclePairIndexRejectsSecondRow(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "ABC1D23")
	acct := seedAccount(t, db, "Transportadora Um")

	require.NoError(t, store.Create(ctx, newAssoc(KindVehicle, vehicle.ID, acct.ID, AssignmentAggregated, true)))

	// Even an inactive second row for the same (vehicle, account) pair is
	// rejected; the single-row kind updates in place.
	err := store.Create(ctx, newAssoc(KindVehicle, vehicle.ID, acct.ID, AssignmentThirdParty, false))
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeDuplicateAssociation))
}

func TestGetForAccountIsTenantScoped(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	driver := seedDriver(t, db, "Ana Souza")
	acct1 := seedAccount(t, db, "Transportadora Um")
	acct2 := seedAccount(t, db, "Transportadora Dois")

	assoc := newAssoc(KindDriver, driver.ID, acct1.ID, AssignmentAggregated, true)
	require.NoError(t, store.Create(ctx, assoc))

	// Owner sees it, with joins.
	got, err := store.GetForAccount(ctx, KindDriver, assoc.ID, acct1.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Driver)
	assert.Equal(t, "Ana Souza", got.Driver.FullName)

	// Another tenant never reaches the row by id.
	got, err = store.GetForAccount(ctx, KindDriver, assoc.ID, acct2.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Nor through the wrong kind.
	got, err = store.GetForAccount(ctx, KindVehicle, assoc.ID, acct1.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindActiveExclusiveExclusions(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "ABC1D23")
	acct := seedAccount(t, db, "Transportadora Um")

	assoc := newAssoc(KindVehicle, vehicle.ID, acct.ID, AssignmentFleet, true)
	require.NoError(t, store.Create(ctx, assoc))

	holder, err := store.FindActiveExclusive(ctx, KindVehicle, vehicle.ID, "", "")
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, acct.ID, holder.AccountID)
	require.NotNil(t, holder.Account)
	assert.Equal(t, "Transportadora Um", holder.Account.CompanyName)

	// Excluding the row's own id finds nothing: the update-in-place case.
	holder, err = store.FindActiveExclusive(ctx, KindVehicle, vehicle.ID, assoc.ID, "")
	require.NoError(t, err)
	assert.Nil(t, holder)

	// Excluding the holding account finds nothing: the idempotent re-request case.
	holder, err = store.FindActiveExclusive(ctx, KindVehicle, vehicle.ID, "", acct.ID)
	require.NoError(t, err)
	assert.Nil(t, holder)
}

func TestDeactivateByIDOnlyTouchesActiveRows(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	driver := seedDriver(t, db, "Ana Souza")
	acct := seedAccount(t, db, "Transportadora Um")

	assoc := newAssoc(KindDriver, driver.ID, acct.ID, AssignmentAggregated, true)
	require.NoError(t, store.Create(ctx, assoc))

	now := time.Now().UTC()
	rows, err := store.DeactivateByID(ctx, KindDriver, assoc.ID, acct.ID, map[string]any{
		"active": false, "ended_at": now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// Second deactivation is a no-op: the active guard filters it out.
	rows, err = store.DeactivateByID(ctx, KindDriver, assoc.ID, acct.ID, map[string]any{
		"active": false, "ended_at": now,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestResourceWideCounts(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "ABC1D23")
	acct1 := seedAccount(t, db, "Transportadora Um")
	acct2 := seedAccount(t, db, "Transportadora Dois")

	require.NoError(t, store.Create(ctx, newAssoc(KindVehicle, vehicle.ID, acct1.ID, AssignmentFleet, true)))
	require.NoError(t, store.Create(ctx, newAssoc(KindVehicle, vehicle.ID, acct2.ID, AssignmentAggregated, false)))

	count, err := store.CountForResource(ctx, KindVehicle, vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// acct2's only row is inactive, so it does not block acct1.
	shared, err := store.HasActiveForOtherAccount(ctx, KindVehicle, vehicle.ID, acct1.ID)
	require.NoError(t, err)
	assert.False(t, shared)

	shared, err = store.HasActiveForOtherAccount(ctx, KindVehicle, vehicle.ID, acct2.ID)
	require.NoError(t, err)
	assert.True(t, shared)

	require.NoError(t, store.DeleteAllForResource(ctx, KindVehicle, vehicle.ID))
	count, err = store.CountForResource(ctx, KindVehicle, vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
