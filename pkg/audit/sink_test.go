package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-registry/pkg/association"
	"github.com/fleetops/fleet-registry/pkg/tenancy"
)

func TestSinkRecordsLifecycleEvent(t *testing.T) {
	store := NewStore(setupTestDB(t))
	sink := NewSink(store, nil)

	ctx := tenancy.WithAccount(context.Background(), tenancy.AccountContext{
		AccountID: "acct-1",
		Subject:   "user-7",
	})

	sink.Record(ctx, association.AuditEvent{
		AccountID:      "acct-1",
		Kind:           association.KindVehicle,
		ResourceID:     "veh-1",
		AssociationID:  "assoc-1",
		Action:         "add_or_update",
		AssignmentType: association.AssignmentFleet,
		Active:         true,
	})

	records, _, total, err := store.ListForAccount(ctx, "acct-1", ListFilter{}, 0, "")
	require.NoError(t, err)
	require.Equal(t, 1, total)

	got := records[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "VEHICLE", got.ResourceKind)
	assert.Equal(t, "veh-1", got.ResourceID)
	assert.Equal(t, "assoc-1", got.AssociationID)
	assert.Equal(t, "add_or_update", got.Action)
	assert.Equal(t, "FLEET", got.AssignmentType)
	assert.True(t, got.Active)
	assert.Equal(t, "user-7", got.Actor)
}

func TestSinkWithoutAccountContext(t *testing.T) {
	store := NewStore(setupTestDB(t))
	sink := NewSink(store, nil)

	// Internal callers without a request context still get a record, just
	// without an actor.
	sink.Record(context.Background(), association.AuditEvent{
		AccountID:     "acct-1",
		Kind:          association.KindDriver,
		ResourceID:    "drv-1",
		AssociationID: "assoc-1",
		Action:        "deactivate",
	})

	records, _, _, err := store.ListForAccount(context.Background(), "acct-1", ListFilter{}, 0, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Actor)
}
