package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fleetops/fleet-registry/pkg/association"
	"github.com/fleetops/fleet-registry/pkg/tenancy"
)

// Sink records association lifecycle events into the audit store. Recording
// is best-effort: failures are logged, never returned, so a broken audit
// trail cannot fail a committed mutation.
type Sink struct {
	store  *Store
	logger *slog.Logger
}

// NewSink creates a Sink backed by the given store.
func NewSink(store *Store, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{store: store, logger: logger}
}

// Record implements association.AuditSink.
func (s *Sink) Record(ctx context.Context, event association.AuditEvent) {
	record := &EventRecord{
		ID:             uuid.NewString(),
		AccountID:      event.AccountID,
		ResourceKind:   string(event.Kind),
		ResourceID:     event.ResourceID,
		AssociationID:  event.AssociationID,
		Action:         event.Action,
		AssignmentType: string(event.AssignmentType),
		Active:         event.Active,
	}
	if ac, ok := tenancy.AccountFromContext(ctx); ok {
		record.Actor = ac.Subject
	}
	if err := s.store.Append(ctx, record); err != nil {
		s.logger.Error("audit record failed",
			"action", event.Action,
			"resourceKind", event.Kind,
			"resourceId", event.ResourceID,
			"error", err)
	}
}
