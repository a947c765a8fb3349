package association

import (
	"time"

	"github.com/fleetops/fleet-registry/pkg/registry"
)

// Association is the GORM model for a resource-account link.
//
// Two invariants live in the schema, not in application memory:
//   - at most one row per resource may be exclusive and active, across all
//     accounts (partial unique index uix_one_exclusive_per_resource);
//   - for the vehicle kind, at most one row may ever exist per
//     (resource, account) pair (partial unique index uix_vehicle_pair).
//
// Both indexes are partial, so they are created by Store.EnsureIndexes rather
// than by AutoMigrate tags.
type Association struct {
	ID             string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	ResourceKind   Kind           `gorm:"column:resource_kind;index:idx_assoc_resource,priority:1;type:varchar(12);not null"`
	ResourceID     string         `gorm:"column:resource_id;index:idx_assoc_resource,priority:2;type:varchar(36);not null"`
	AccountID      string         `gorm:"column:account_id;index:idx_assoc_account;type:varchar(36);not null"`
	AssignmentType AssignmentType `gorm:"column:assignment_type;type:varchar(16);not null"`
	Active         bool           `gorm:"column:active;not null"`
	GroupID        *string        `gorm:"column:group_id;type:varchar(36)"`
	StartedAt      time.Time      `gorm:"column:started_at;not null"`
	EndedAt        *time.Time     `gorm:"column:ended_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`

	// Joined entities. Driver and Vehicle share the resource_id column; the
	// store preloads the one matching ResourceKind. No database-level foreign
	// keys are created (see db.Connect).
	Driver  *registry.Driver       `gorm:"foreignKey:ResourceID;references:ID"`
	Vehicle *registry.Vehicle      `gorm:"foreignKey:ResourceID;references:ID"`
	Account *registry.Account      `gorm:"foreignKey:AccountID;references:ID"`
	Group   *registry.VehicleGroup `gorm:"foreignKey:GroupID;references:ID"`
}

// TableName returns the GORM table name.
func (Association) TableName() string { return "associations" }
