// Package audit keeps an append-only trail of association lifecycle
// mutations. Events are recorded best-effort after commit and pruned by a
// retention worker.
package audit

import "time"

// EventRecord is an immutable audit log entry for one committed association
// mutation.
type EventRecord struct {
	ID             string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	AccountID      string    `gorm:"column:account_id;index:idx_audit_account_time,priority:1;not null"`
	ResourceKind   string    `gorm:"column:resource_kind;not null"`
	ResourceID     string    `gorm:"column:resource_id;index:idx_audit_resource_time,priority:1;not null"`
	AssociationID  string    `gorm:"column:association_id;index"`
	Action         string    `gorm:"column:action;not null"` // add_or_update, update, deactivate, remove
	AssignmentType string    `gorm:"column:assignment_type"`
	Active         bool      `gorm:"column:active"`
	Actor          string    `gorm:"column:actor"`
	CreatedAt      time.Time `gorm:"column:created_at;index:idx_audit_account_time,priority:2;index:idx_audit_resource_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (EventRecord) TableName() string { return "audit_events" }
