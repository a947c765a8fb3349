package association

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-registry/pkg/apierror"
	"github.com/fleetops/fleet-registry/pkg/registry"
)

func TestExclusiveHolder(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	own := NewOwnership(KindVehicle, store, nil)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "ABC1D23")
	acct := seedAccount(t, db, "Transportadora Um")

	_, ok, err := own.ExclusiveHolder(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Shared rows never make a holder.
	require.NoError(t, store.Create(ctx, newAssoc(KindVehicle, vehicle.ID, acct.ID, AssignmentAggregated, true)))
	_, ok, err = own.ExclusiveHolder(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	other := seedVehicle(t, db, "XYZ9Z99")
	require.NoError(t, store.Create(ctx, newAssoc(KindVehicle, other.ID, acct.ID, AssignmentFleet, true)))
	holder, ok, err := own.ExclusiveHolder(ctx, other.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, acct.ID, holder)
}

func TestAuthorizePhysicalEdit(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	own := NewOwnership(KindVehicle, store, nil)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "ABC1D23")
	owner := seedAccount(t, db, "Transportadora Um")
	renter := seedAccount(t, db, "Transportadora Dois")

	require.NoError(t, store.Create(ctx, newAssoc(KindVehicle, vehicle.ID, owner.ID, AssignmentFleet, true)))
	require.NoError(t, store.Create(ctx, newAssoc(KindVehicle, vehicle.ID, renter.ID, AssignmentLeased, true)))

	// With an owner present, only the owner edits.
	require.NoError(t, own.AuthorizePhysicalEdit(ctx, vehicle.ID, owner.ID))

	err := own.AuthorizePhysicalEdit(ctx, vehicle.ID, renter.ID)
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeForbidden))
}

func TestAuthorizePhysicalEditWithoutOwner(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	own := NewOwnership(KindVehicle, store, nil)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "ABC1D23")
	renter := seedAccount(t, db, "Transportadora Um")
	former := seedAccount(t, db, "Transportadora Dois")
	outsider := seedAccount(t, db, "Transportadora Tres")

	require.NoError(t, store.Create(ctx, newAssoc(KindVehicle, vehicle.ID, renter.ID, AssignmentLeased, true)))
	require.NoError(t, store.Create(ctx, newAssoc(KindVehicle, vehicle.ID, former.ID, AssignmentAggregated, false)))

	// No owner: any active association suffices.
	require.NoError(t, own.AuthorizePhysicalEdit(ctx, vehicle.ID, renter.ID))

	// An inactive one does not.
	err := own.AuthorizePhysicalEdit(ctx, vehicle.ID, former.ID)
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeForbidden))

	err = own.AuthorizePhysicalEdit(ctx, vehicle.ID, outsider.ID)
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeForbidden))
}

func TestDeleteResource(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	own := NewOwnership(KindVehicle, store, nil)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "ABC1D23")
	owner := seedAccount(t, db, "Transportadora Um")
	renter := seedAccount(t, db, "Transportadora Dois")

	require.NoError(t, store.Create(ctx, newAssoc(KindVehicle, vehicle.ID, owner.ID, AssignmentFleet, true)))
	renterRow := newAssoc(KindVehicle, vehicle.ID, renter.ID, AssignmentLeased, true)
	require.NoError(t, store.Create(ctx, renterRow))

	// Non-holders cannot delete.
	err := own.DeleteResource(ctx, vehicle.ID, renter.ID)
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeForbidden))

	// Nor the holder while another account is still actively associated.
	err = own.DeleteResource(ctx, vehicle.ID, owner.ID)
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeForbidden))

	_, err = store.DeactivateByID(ctx, KindVehicle, renterRow.ID, renter.ID, map[string]any{"active": false})
	require.NoError(t, err)

	require.NoError(t, own.DeleteResource(ctx, vehicle.ID, owner.ID))

	// The vehicle row and every association row are gone.
	got, err := registry.NewVehicleStore(db).Get(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	count, err := store.CountForResource(ctx, KindVehicle, vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Deleting again: no holder anymore.
	err = own.DeleteResource(ctx, vehicle.ID, owner.ID)
	require.Error(t, err)
	assert.True(t, apierror.IsCode(err, apierror.CodeForbidden))
}
