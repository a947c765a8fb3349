package association

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/fleetops/fleet-registry/pkg/apierror"
)

// Store provides durable, transactional storage of association rows. Every
// point lookup binds the account id, so a caller can never reach another
// tenant's row through an (id, accountID) lookup.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the associations table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Association{}); err != nil {
		return fmt.Errorf("auto-migrate associations: %w", err)
	}
	return s.EnsureIndexes()
}

// EnsureIndexes creates the partial unique indexes that enforce the
// exclusivity and single-row invariants at commit time. The in-transaction
// validator is an optimization for a better error message; these indexes are
// the safety net, so creating them is not optional.
//
// MySQL has no partial indexes; there the lifecycle transaction is the sole
// enforcement mechanism and callers should run the store against a database
// that supports them in production.
func (s *Store) EnsureIndexes() error {
	switch s.db.Dialector.Name() {
	case "postgres", "sqlite":
	default:
		return nil
	}
	stmts := []string{
		// One active exclusive assignment per resource, across accounts.
		`CREATE UNIQUE INDEX IF NOT EXISTS uix_one_exclusive_per_resource
			ON associations (resource_kind, resource_id)
			WHERE assignment_type = 'FLEET' AND active = TRUE`,
		// One row ever per (vehicle, account) pair.
		`CREATE UNIQUE INDEX IF NOT EXISTS uix_vehicle_pair
			ON associations (resource_id, account_id)
			WHERE resource_kind = 'VEHICLE'`,
	}
	for _, stmt := range stmts {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure association indexes: %w", err)
		}
	}
	return nil
}

// Transaction runs fn against a transaction-scoped store. All multi-step
// lifecycle operations go through here; a failure rolls back every step.
// The partial unique indexes make commit the enforcement point of last
// resort, so the default isolation level is sufficient on every dialect.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// scoped returns a query over one resource kind.
func (s *Store) scoped(ctx context.Context, kind Kind) *gorm.DB {
	return s.db.WithContext(ctx).Model(&Association{}).Where("resource_kind = ?", kind)
}

// withJoins preloads the joined entities appropriate for the resource kind.
func withJoins(q *gorm.DB, kind Kind) *gorm.DB {
	q = q.Preload("Account")
	switch kind {
	case KindDriver:
		q = q.Preload("Driver")
	case KindVehicle:
		q = q.Preload("Vehicle").Preload("Group")
	}
	return q
}

// GetForAccount retrieves an association by id scoped to an account, with
// joined entities. Returns nil, nil if the row does not exist or belongs to a
// different account.
func (s *Store) GetForAccount(ctx context.Context, kind Kind, id, accountID string) (*Association, error) {
	var assoc Association
	err := withJoins(s.scoped(ctx, kind), kind).
		Where("id = ? AND account_id = ?", id, accountID).
		First(&assoc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get association: %w", err)
	}
	return &assoc, nil
}

// FindActivePair returns the active association for a (resource, account)
// pair, or nil if none exists. Used by the history-preserving kind.
func (s *Store) FindActivePair(ctx context.Context, kind Kind, resourceID, accountID string) (*Association, error) {
	var assoc Association
	err := s.scoped(ctx, kind).
		Where("resource_id = ? AND account_id = ? AND active = ?", resourceID, accountID, true).
		First(&assoc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active association: %w", err)
	}
	return &assoc, nil
}

// FindPair returns the association for a (resource, account) pair in any
// active state, or nil if none exists. Used by the single-row kind.
func (s *Store) FindPair(ctx context.Context, kind Kind, resourceID, accountID string) (*Association, error) {
	var assoc Association
	err := s.scoped(ctx, kind).
		Where("resource_id = ? AND account_id = ?", resourceID, accountID).
		First(&assoc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find association pair: %w", err)
	}
	return &assoc, nil
}

// FindActiveExclusive returns the currently active exclusive association for
// a resource with the holding account preloaded, or nil if none exists.
// When excludeID is non-empty that row is ignored (update-in-place case);
// otherwise rows of excludeAccountID are ignored (re-association case).
func (s *Store) FindActiveExclusive(ctx context.Context, kind Kind, resourceID, excludeID, excludeAccountID string) (*Association, error) {
	q := s.scoped(ctx, kind).
		Where("resource_id = ? AND assignment_type = ? AND active = ?", resourceID, AssignmentFleet, true).
		Preload("Account")
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	} else if excludeAccountID != "" {
		q = q.Where("account_id <> ?", excludeAccountID)
	}

	var assoc Association
	if err := q.First(&assoc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active exclusive association: %w", err)
	}
	return &assoc, nil
}

// Create inserts a new association row. Unique-index collisions surface as
// DuplicateAssociation, oversized values as InvalidField.
func (s *Store) Create(ctx context.Context, assoc *Association) error {
	if err := s.db.WithContext(ctx).Create(assoc).Error; err != nil {
		return translateWriteError("create association", err)
	}
	return nil
}

// UpdateByID applies fields to the association identified by (id, accountID)
// and returns the number of rows affected. Zero rows means the row is missing,
// inactive-guarded out, or belongs to a different tenant.
func (s *Store) UpdateByID(ctx context.Context, kind Kind, id, accountID string, fields map[string]any) (int64, error) {
	result := s.scoped(ctx, kind).
		Where("id = ? AND account_id = ?", id, accountID).
		Updates(fields)
	if result.Error != nil {
		return 0, translateWriteError("update association", result.Error)
	}
	return result.RowsAffected, nil
}

// DeactivateByID sets active=false on the association identified by
// (id, accountID) only if it is currently active, stamping ended_at.
// Returns the number of rows affected.
func (s *Store) DeactivateByID(ctx context.Context, kind Kind, id, accountID string, fields map[string]any) (int64, error) {
	result := s.scoped(ctx, kind).
		Where("id = ? AND account_id = ? AND active = ?", id, accountID, true).
		Updates(fields)
	if result.Error != nil {
		return 0, translateWriteError("deactivate association", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes the association identified by (id, accountID) and returns
// the number of rows affected.
func (s *Store) Delete(ctx context.Context, kind Kind, id, accountID string) (int64, error) {
	result := s.scoped(ctx, kind).
		Where("id = ? AND account_id = ?", id, accountID).
		Delete(&Association{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete association: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountForResource returns how many association rows exist for a resource,
// across all accounts and active states.
func (s *Store) CountForResource(ctx context.Context, kind Kind, resourceID string) (int64, error) {
	var count int64
	err := s.scoped(ctx, kind).Where("resource_id = ?", resourceID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count associations for resource: %w", err)
	}
	return count, nil
}

// HasActiveForOtherAccount reports whether any account other than accountID
// holds an active association (of any type) with the resource.
func (s *Store) HasActiveForOtherAccount(ctx context.Context, kind Kind, resourceID, accountID string) (bool, error) {
	var count int64
	err := s.scoped(ctx, kind).
		Where("resource_id = ? AND account_id <> ? AND active = ?", resourceID, accountID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check associations for other accounts: %w", err)
	}
	return count > 0, nil
}

// DeleteAllForResource removes every association row for a resource. Used by
// the resource-deletion path, inside its transaction.
func (s *Store) DeleteAllForResource(ctx context.Context, kind Kind, resourceID string) error {
	err := s.scoped(ctx, kind).Where("resource_id = ?", resourceID).Delete(&Association{}).Error
	if err != nil {
		return fmt.Errorf("delete associations for resource: %w", err)
	}
	return nil
}

// translateWriteError converts driver-level write failures into the typed
// taxonomy so callers can distinguish a lost uniqueness race from malformed
// input. Anything else is wrapped verbatim.
func translateWriteError(op string, err error) error {
	if isDuplicateKey(err) {
		return apierror.Duplicate("an equivalent association already exists for this resource and account")
	}
	if isValueTooLong(err) {
		return apierror.InvalidField("a field value is too long or malformed")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql 1062
		strings.Contains(msg, "duplicate key value") || // postgres 23505
		strings.Contains(msg, "SQLSTATE 23505")
}

func isValueTooLong(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "value too long") || // postgres 22001
		strings.Contains(msg, "Data too long") // mysql 1406
}
