package association

import (
	"context"
	"fmt"

	"github.com/fleetops/fleet-registry/pkg/apierror"
)

// checkExclusive answers whether activating an exclusive assignment of the
// resource to accountID would violate the one-active-exclusive-per-resource
// rule. When excludeID is non-empty the candidate row itself is ignored
// (update-in-place); otherwise the account's own rows are ignored.
//
// Must run against the transaction-scoped store of the surrounding write:
// checking in one transaction and writing in another reintroduces the
// check-then-act race. Even then this is advisory — the partial unique index
// catches races at commit time.
func checkExclusive(ctx context.Context, tx *Store, kind Kind, resourceID, accountID, excludeID string) error {
	holder, err := tx.FindActiveExclusive(ctx, kind, resourceID, excludeID, accountID)
	if err != nil {
		return err
	}
	if holder == nil {
		return nil
	}

	holderName := holder.AccountID
	if holder.Account != nil {
		holderName = holder.Account.CompanyName
	}
	return apierror.ExclusivityConflict(holder.AccountID, fmt.Sprintf(
		"resource %q already has an active fleet assignment held by account %q; deactivate it before assigning another fleet owner",
		resourceID, holderName))
}
