package association

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Request carries the desired state for an add-or-update command.
type Request struct {
	ResourceID     string
	AssignmentType AssignmentType
	Active         bool

	// StartedAt defaults to now when nil.
	StartedAt *time.Time
	// EndedAt may be set by the caller when creating a row directly as
	// inactive; the engine stamps it itself on active-to-inactive transitions.
	EndedAt *time.Time
	// GroupID is accepted for the vehicle kind only and must reference a
	// group owned by the requesting account.
	GroupID *string
}

// persistenceStrategy is the per-kind half of the lifecycle engine: how an
// existing row for a (resource, account) pair is found, and how the requested
// state is applied over it. The exclusivity check and transaction discipline
// live in the Manager, written once for both kinds.
type persistenceStrategy interface {
	findExisting(ctx context.Context, tx *Store, kind Kind, resourceID, accountID string) (*Association, error)
	apply(ctx context.Context, tx *Store, kind Kind, existing *Association, accountID string, req Request, now time.Time) (*Association, error)
}

func newRow(kind Kind, accountID string, req Request, now time.Time) *Association {
	startedAt := now
	if req.StartedAt != nil {
		startedAt = *req.StartedAt
	}
	return &Association{
		ID:             uuid.NewString(),
		ResourceKind:   kind,
		ResourceID:     req.ResourceID,
		AccountID:      accountID,
		AssignmentType: req.AssignmentType,
		Active:         req.Active,
		GroupID:        req.GroupID,
		StartedAt:      startedAt,
		EndedAt:        req.EndedAt,
	}
}

// historyStrategy never overwrites a row: a changed state supersedes the
// currently active row with a fresh one, keeping the full association history
// for the (resource, account) pair.
type historyStrategy struct{}

func (historyStrategy) findExisting(ctx context.Context, tx *Store, kind Kind, resourceID, accountID string) (*Association, error) {
	return tx.FindActivePair(ctx, kind, resourceID, accountID)
}

func (historyStrategy) apply(ctx context.Context, tx *Store, kind Kind, existing *Association, accountID string, req Request, now time.Time) (*Association, error) {
	if existing != nil {
		// Identical requested state: idempotent no-op.
		if existing.AssignmentType == req.AssignmentType && existing.Active == req.Active {
			return existing, nil
		}
		// Retire the active row before activating its successor. A requested
		// inactive row is recorded alongside without touching the active one.
		if req.Active {
			if _, err := tx.DeactivateByID(ctx, kind, existing.ID, accountID, map[string]any{
				"active":   false,
				"ended_at": now,
			}); err != nil {
				return nil, err
			}
		}
	}

	row := newRow(kind, accountID, req, now)
	if err := tx.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// singleRowStrategy keeps at most one row per (resource, account) pair, ever:
// re-association updates the row in place. The pair's partial unique index
// backs this at commit time.
type singleRowStrategy struct{}

func (singleRowStrategy) findExisting(ctx context.Context, tx *Store, kind Kind, resourceID, accountID string) (*Association, error) {
	return tx.FindPair(ctx, kind, resourceID, accountID)
}

func (singleRowStrategy) apply(ctx context.Context, tx *Store, kind Kind, existing *Association, accountID string, req Request, now time.Time) (*Association, error) {
	if existing == nil {
		row := newRow(kind, accountID, req, now)
		if err := tx.Create(ctx, row); err != nil {
			return nil, err
		}
		return row, nil
	}

	fields := map[string]any{
		"assignment_type": req.AssignmentType,
		"active":          req.Active,
	}
	// An omitted groupId leaves the current group untouched; clearing a
	// group goes through the patch operation's explicit null.
	if req.GroupID != nil {
		fields["group_id"] = req.GroupID
	}
	switch {
	case existing.Active && !req.Active:
		endedAt := now
		if req.EndedAt != nil {
			endedAt = *req.EndedAt
		}
		fields["ended_at"] = endedAt
	case !existing.Active && req.Active:
		// Reactivation opens a fresh validity window.
		fields["ended_at"] = nil
	}

	if _, err := tx.UpdateByID(ctx, kind, existing.ID, accountID, fields); err != nil {
		return nil, err
	}
	return tx.GetForAccount(ctx, kind, existing.ID, accountID)
}
