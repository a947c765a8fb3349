package audit

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
)

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

	require.NoError(t, NewStore(db).AutoMigrate())
	return db
}

func appendEvent(t *testing.T, store *Store, accountID, action string, createdAt time.Time) *EventRecord {
	t.Helper()
	record := &EventRecord{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		ResourceKind:   "DRIVER",
		ResourceID:     "drv-1",
		AssociationID:  uuid.NewString(),
		Action:         action,
		AssignmentType: "FLEET",
		Active:         true,
		CreatedAt:      createdAt,
	}
	require.NoError(t, store.Append(context.Background(), record))
	return record
}

func TestListForAccountPagination(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		appendEvent(t, store, "acct-1", "add_or_update", base.Add(time.Duration(i)*time.Minute))
	}
	appendEvent(t, store, "acct-2", "add_or_update", base)

	records, nextToken, total, err := store.ListForAccount(ctx, "acct-1", ListFilter{}, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, records, 2)
	require.NotEmpty(t, nextToken)
	// Newest first.
	assert.True(t, records[0].CreatedAt.After(records[1].CreatedAt))

	records, nextToken, _, err = store.ListForAccount(ctx, "acct-1", ListFilter{}, 2, nextToken)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotEmpty(t, nextToken)

	records, nextToken, _, err = store.ListForAccount(ctx, "acct-1", ListFilter{}, 2, nextToken)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, nextToken)

	_, _, _, err = store.ListForAccount(ctx, "acct-1", ListFilter{}, 2, "not-a-timestamp")
	require.Error(t, err)
}

func TestListForAccountFilters(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	appendEvent(t, store, "acct-1", "add_or_update", base)
	deactivated := appendEvent(t, store, "acct-1", "deactivate", base.Add(time.Minute))

	records, _, total, err := store.ListForAccount(ctx, "acct-1", ListFilter{Action: "deactivate"}, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, deactivated.ID, records[0].ID)

	records, _, _, err = store.ListForAccount(ctx, "acct-1", ListFilter{ResourceKind: "VEHICLE"}, 0, "")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, _, _, err = store.ListForAccount(ctx, "acct-1", ListFilter{ResourceID: "drv-1"}, 0, "")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestGetForAccountScoping(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	event := appendEvent(t, store, "acct-1", "add_or_update", time.Now().UTC())

	got, err := store.GetForAccount(ctx, event.ID, "acct-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, event.Action, got.Action)

	got, err = store.GetForAccount(ctx, event.ID, "acct-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteOlderThan(t *testing.T) {
	store := NewStore(setupTestDB(t))

	old := time.Now().Add(-48 * time.Hour)
	appendEvent(t, store, "acct-1", "add_or_update", old)
	recent := appendEvent(t, store, "acct-1", "add_or_update", time.Now().UTC())

	deleted, err := store.DeleteOlderThan(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	records, _, total, err := store.ListForAccount(context.Background(), "acct-1", ListFilter{}, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, recent.ID, records[0].ID)
}
