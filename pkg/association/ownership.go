package association

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fleetops/fleet-registry/pkg/apierror"
	"github.com/fleetops/fleet-registry/pkg/registry"
)

// Ownership is the computed ownership predicate for one resource kind: who,
// if anyone, holds the active exclusive assignment. It is the single call
// site for "who may edit this resource's physical data" and for the
// resource-deletion path.
type Ownership struct {
	kind   Kind
	store  *Store
	logger *slog.Logger
}

// NewOwnership creates the ownership predicate for a resource kind.
func NewOwnership(kind Kind, store *Store, logger *slog.Logger) *Ownership {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ownership{kind: kind, store: store, logger: logger}
}

// ExclusiveHolder returns the account id holding the active exclusive
// assignment for the resource, or ok=false if no account does.
func (o *Ownership) ExclusiveHolder(ctx context.Context, resourceID string) (string, bool, error) {
	holder, err := o.store.FindActiveExclusive(ctx, o.kind, resourceID, "", "")
	if err != nil {
		return "", false, err
	}
	if holder == nil {
		return "", false, nil
	}
	return holder.AccountID, true, nil
}

// AuthorizePhysicalEdit decides whether accountID may edit the resource's
// physical data. With an exclusive holder present, only the holder may; with
// none, any account holding an active association may, which is logged since
// shared editing can drift without an owner.
func (o *Ownership) AuthorizePhysicalEdit(ctx context.Context, resourceID, accountID string) error {
	holder, ok, err := o.ExclusiveHolder(ctx, resourceID)
	if err != nil {
		return err
	}
	if ok {
		if holder != accountID {
			return apierror.Forbidden("only the fleet owner may edit this resource's physical data")
		}
		return nil
	}

	active, err := o.store.FindActivePair(ctx, o.kind, resourceID, accountID)
	if err != nil {
		return err
	}
	if active == nil {
		return apierror.Forbidden("account holds no active association with this resource")
	}
	o.logger.Warn("resource edited without a fleet owner",
		"kind", string(o.kind),
		"resourceID", resourceID,
		"accountID", accountID)
	return nil
}

// DeleteResource removes a resource and all of its association rows in one
// transaction. Requires that the caller holds the active exclusive assignment
// and that no other account holds any active association with the resource.
func (o *Ownership) DeleteResource(ctx context.Context, resourceID, accountID string) error {
	return o.store.Transaction(ctx, func(tx *Store) error {
		holder, ok, err := NewOwnership(o.kind, tx, o.logger).ExclusiveHolder(ctx, resourceID)
		if err != nil {
			return err
		}
		if !ok || holder != accountID {
			return apierror.Forbidden("only the fleet owner may delete this resource")
		}

		shared, err := tx.HasActiveForOtherAccount(ctx, o.kind, resourceID, accountID)
		if err != nil {
			return err
		}
		if shared {
			return apierror.Forbidden("other accounts still hold active associations with this resource")
		}

		if err := tx.DeleteAllForResource(ctx, o.kind, resourceID); err != nil {
			return err
		}

		var result int64
		switch o.kind {
		case KindVehicle:
			res := tx.db.WithContext(ctx).Where("id = ?", resourceID).Delete(&registry.Vehicle{})
			if res.Error != nil {
				return fmt.Errorf("delete vehicle: %w", res.Error)
			}
			result = res.RowsAffected
		case KindDriver:
			res := tx.db.WithContext(ctx).Where("id = ?", resourceID).Delete(&registry.Driver{})
			if res.Error != nil {
				return fmt.Errorf("delete driver: %w", res.Error)
			}
			result = res.RowsAffected
		}
		if result == 0 {
			return apierror.NotFound("resource %q not found", resourceID)
		}
		return nil
	})
}
