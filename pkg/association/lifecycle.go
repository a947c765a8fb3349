package association

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fleetops/fleet-registry/pkg/apierror"
)

// maxKeyLen is the column width of identifier fields; longer values are
// rejected before they reach the store.
const maxKeyLen = 36

// ResourceRegistry is the read-only existence check for a resource kind.
// Satisfied by registry.DriverStore and registry.VehicleStore.
type ResourceRegistry interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// AccountRegistry is the read-only existence check for tenant accounts.
// Satisfied by registry.AccountStore.
type AccountRegistry interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// GroupRegistry checks that a group exists and is owned by the account.
// Satisfied by registry.GroupStore. Only the vehicle kind consults it.
type GroupRegistry interface {
	Exists(ctx context.Context, id, accountID string) (bool, error)
}

// AuditSink receives lifecycle events. Recording is best-effort and must
// never fail the operation.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent)
}

// AuditEvent describes one committed lifecycle mutation.
type AuditEvent struct {
	AccountID      string
	Kind           Kind
	ResourceID     string
	AssociationID  string
	Action         string
	AssignmentType AssignmentType
	Active         bool
}

// Patch carries a partial update for an existing association. Nil fields are
// left untouched; the Clear flags distinguish "unset" from "set to null".
type Patch struct {
	AssignmentType *AssignmentType
	Active         *bool
	StartedAt      *time.Time
	EndedAt        *time.Time
	ClearEndedAt   bool
	GroupID        *string
	ClearGroup     bool
}

// Manager orchestrates the association lifecycle for one resource kind. The
// exclusivity check and transaction discipline are written once here; the
// kind-specific persistence discipline is supplied by the strategy.
type Manager struct {
	kind      Kind
	store     *Store
	resources ResourceRegistry
	accounts  AccountRegistry
	groups    GroupRegistry
	strategy  persistenceStrategy
	audit     AuditSink
	logger    *slog.Logger
}

// NewDriverManager creates the lifecycle manager for driver associations,
// which preserve full association history.
func NewDriverManager(store *Store, resources ResourceRegistry, accounts AccountRegistry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		kind:      KindDriver,
		store:     store,
		resources: resources,
		accounts:  accounts,
		strategy:  historyStrategy{},
		logger:    logger,
	}
}

// NewVehicleManager creates the lifecycle manager for vehicle associations,
// which keep a single mutable row per (vehicle, account) pair.
func NewVehicleManager(store *Store, resources ResourceRegistry, accounts AccountRegistry, groups GroupRegistry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		kind:      KindVehicle,
		store:     store,
		resources: resources,
		accounts:  accounts,
		groups:    groups,
		strategy:  singleRowStrategy{},
		logger:    logger,
	}
}

// SetAuditSink attaches a best-effort audit sink for lifecycle events.
func (m *Manager) SetAuditSink(sink AuditSink) { m.audit = sink }

// Kind returns the resource kind this manager serves.
func (m *Manager) Kind() Kind { return m.kind }

func (m *Manager) resourceNoun() string {
	if m.kind == KindVehicle {
		return "vehicle"
	}
	return "driver"
}

// AddOrUpdate creates or refreshes the association between a resource and an
// account. Exclusivity validation, the existing-row lookup and the applied
// transition run inside one transaction; the partial unique index catches any
// race lost at commit time as DuplicateAssociation.
func (m *Manager) AddOrUpdate(ctx context.Context, accountID string, req Request) (*Association, error) {
	if err := m.validateRequest(accountID, req); err != nil {
		return nil, err
	}

	exists, err := m.resources.Exists(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierror.NotFound("%s %q not found", m.resourceNoun(), req.ResourceID)
	}

	exists, err = m.accounts.Exists(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierror.NotFound("account %q not found", accountID)
	}

	if req.GroupID != nil {
		if err := m.checkGroup(ctx, *req.GroupID, accountID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	var result *Association
	err = m.store.Transaction(ctx, func(tx *Store) error {
		if req.AssignmentType.Exclusive() && req.Active {
			if err := checkExclusive(ctx, tx, m.kind, req.ResourceID, accountID, ""); err != nil {
				return err
			}
		}
		existing, err := m.strategy.findExisting(ctx, tx, m.kind, req.ResourceID, accountID)
		if err != nil {
			return err
		}
		result, err = m.strategy.apply(ctx, tx, m.kind, existing, accountID, req, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.record(ctx, accountID, result, "add_or_update")
	return m.reload(ctx, result.ID, accountID)
}

// Update applies a partial update to the association identified by
// (id, accountID). Transitions into the exclusive slot re-run the exclusivity
// check excluding the row's own id.
func (m *Manager) Update(ctx context.Context, id, accountID string, patch Patch) (*Association, error) {
	if patch.AssignmentType != nil && !patch.AssignmentType.Valid() {
		return nil, apierror.InvalidField("unknown assignment type %q", *patch.AssignmentType)
	}
	if patch.GroupID != nil && m.kind != KindVehicle {
		return nil, apierror.InvalidField("groups apply to vehicle associations only")
	}

	now := time.Now().UTC()
	var updated *Association
	err := m.store.Transaction(ctx, func(tx *Store) error {
		existing, err := tx.GetForAccount(ctx, m.kind, id, accountID)
		if err != nil {
			return err
		}
		if existing == nil {
			return m.notFound(id)
		}

		if patch.GroupID != nil {
			if err := m.checkGroup(ctx, *patch.GroupID, accountID); err != nil {
				return err
			}
		}

		// Re-check exclusivity when the patch moves the row into the
		// exclusive slot, or re-activates a row already in it.
		becomesExclusive := patch.AssignmentType != nil && patch.AssignmentType.Exclusive()
		reactivatesExclusive := patch.Active != nil && *patch.Active &&
			existing.AssignmentType.Exclusive() &&
			(patch.AssignmentType == nil || patch.AssignmentType.Exclusive())
		if becomesExclusive || reactivatesExclusive {
			if err := checkExclusive(ctx, tx, m.kind, existing.ResourceID, accountID, existing.ID); err != nil {
				return err
			}
		}

		fields := map[string]any{}
		if patch.AssignmentType != nil {
			fields["assignment_type"] = *patch.AssignmentType
		}
		if patch.StartedAt != nil {
			fields["started_at"] = *patch.StartedAt
		}
		if patch.Active != nil {
			fields["active"] = *patch.Active
			switch {
			case existing.Active && !*patch.Active && patch.EndedAt == nil && !patch.ClearEndedAt:
				fields["ended_at"] = now
			case !existing.Active && *patch.Active && patch.EndedAt == nil:
				fields["ended_at"] = nil
			}
		}
		if patch.EndedAt != nil {
			fields["ended_at"] = *patch.EndedAt
		} else if patch.ClearEndedAt {
			fields["ended_at"] = nil
		}
		if patch.GroupID != nil {
			fields["group_id"] = *patch.GroupID
		} else if patch.ClearGroup {
			fields["group_id"] = nil
		}
		if len(fields) == 0 {
			updated = existing
			return nil
		}

		rows, err := tx.UpdateByID(ctx, m.kind, id, accountID, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Lost a race with a concurrent delete.
			return m.notFound(id)
		}
		updated, err = tx.GetForAccount(ctx, m.kind, id, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.record(ctx, accountID, updated, "update")
	return updated, nil
}

// Deactivate retires an active association: active=false, endedAt=now. The
// row is kept; only resource deletion removes history.
func (m *Manager) Deactivate(ctx context.Context, id, accountID string) (*Association, error) {
	now := time.Now().UTC()
	var updated *Association
	err := m.store.Transaction(ctx, func(tx *Store) error {
		rows, err := tx.DeactivateByID(ctx, m.kind, id, accountID, map[string]any{
			"active":   false,
			"ended_at": now,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return apierror.NotFound("active association %q not found for this account", id)
		}
		updated, err = tx.GetForAccount(ctx, m.kind, id, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.record(ctx, accountID, updated, "deactivate")
	return updated, nil
}

// Remove hard-deletes an association. Only the single-row kind exposes
// removal; the history-preserving kind retires rows through Deactivate. An
// exclusive assignment is never removed here: while other accounts still hold
// links the resource is shared, and a sole exclusive link is dissolved through
// the resource-deletion path, which cascades.
func (m *Manager) Remove(ctx context.Context, id, accountID string) error {
	if m.kind != KindVehicle {
		return apierror.Forbidden("driver associations are deactivated, not removed")
	}

	var removed *Association
	err := m.store.Transaction(ctx, func(tx *Store) error {
		assoc, err := tx.GetForAccount(ctx, m.kind, id, accountID)
		if err != nil {
			return err
		}
		if assoc == nil {
			return m.notFound(id)
		}

		if assoc.AssignmentType.Exclusive() {
			total, err := tx.CountForResource(ctx, m.kind, assoc.ResourceID)
			if err != nil {
				return err
			}
			if total > 1 {
				return apierror.Forbidden(
					"cannot remove the fleet assignment while the %s is still associated with other accounts",
					m.resourceNoun())
			}
			return apierror.Forbidden(
				"the sole fleet assignment is dissolved through %s deletion, which cascades to its associations",
				m.resourceNoun())
		}

		rows, err := tx.Delete(ctx, m.kind, id, accountID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return m.notFound(id)
		}
		removed = assoc
		return nil
	})
	if err != nil {
		return err
	}

	m.record(ctx, accountID, removed, "remove")
	return nil
}

// GetByID retrieves an association by (id, accountID) with joined entities.
func (m *Manager) GetByID(ctx context.Context, id, accountID string) (*Association, error) {
	assoc, err := m.store.GetForAccount(ctx, m.kind, id, accountID)
	if err != nil {
		return nil, err
	}
	if assoc == nil {
		return nil, m.notFound(id)
	}
	return assoc, nil
}

func (m *Manager) validateRequest(accountID string, req Request) error {
	if strings.TrimSpace(req.ResourceID) == "" {
		return apierror.InvalidField("%s id is required", m.resourceNoun())
	}
	if len(req.ResourceID) > maxKeyLen || len(accountID) > maxKeyLen {
		return apierror.InvalidField("identifier exceeds %d characters", maxKeyLen)
	}
	if !req.AssignmentType.Valid() {
		return apierror.InvalidField("unknown assignment type %q", req.AssignmentType)
	}
	if req.GroupID != nil {
		if m.kind != KindVehicle {
			return apierror.InvalidField("groups apply to vehicle associations only")
		}
		if len(*req.GroupID) > maxKeyLen {
			return apierror.InvalidField("identifier exceeds %d characters", maxKeyLen)
		}
	}
	return nil
}

func (m *Manager) checkGroup(ctx context.Context, groupID, accountID string) error {
	if m.groups == nil {
		return apierror.InvalidField("groups apply to vehicle associations only")
	}
	ok, err := m.groups.Exists(ctx, groupID, accountID)
	if err != nil {
		return err
	}
	if !ok {
		return apierror.NotFound("group %q not found or not owned by this account", groupID)
	}
	return nil
}

func (m *Manager) notFound(id string) error {
	return apierror.NotFound("association %q not found for this account", id)
}

func (m *Manager) reload(ctx context.Context, id, accountID string) (*Association, error) {
	assoc, err := m.store.GetForAccount(ctx, m.kind, id, accountID)
	if err != nil {
		return nil, err
	}
	if assoc == nil {
		return nil, m.notFound(id)
	}
	return assoc, nil
}

// record emits a best-effort audit event for a committed mutation.
func (m *Manager) record(ctx context.Context, accountID string, assoc *Association, action string) {
	if m.audit == nil || assoc == nil {
		return
	}
	m.audit.Record(ctx, AuditEvent{
		AccountID:      accountID,
		Kind:           m.kind,
		ResourceID:     assoc.ResourceID,
		AssociationID:  assoc.ID,
		Action:         action,
		AssignmentType: assoc.AssignmentType,
		Active:         assoc.Active,
	})
}
