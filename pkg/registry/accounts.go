// Package registry provides the globally registered entities (accounts,
// drivers, vehicles, vehicle groups) and their CRUD stores. The association
// engine consumes these stores through narrow existence-check interfaces.
package registry

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// AccountStore provides CRUD operations for tenant accounts.
type AccountStore struct {
	db *gorm.DB
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// AutoMigrate creates or updates the accounts table.
func (s *AccountStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Account{})
}

// Create inserts a new account.
func (s *AccountStore) Create(ctx context.Context, account *Account) error {
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Get retrieves an account by id. Returns nil, nil if no account exists.
func (s *AccountStore) Get(ctx context.Context, id string) (*Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &account, nil
}

// Exists reports whether an account with the given id is registered.
func (s *AccountStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Account{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}
	return count > 0, nil
}

// Update saves changed account fields. Returns gorm.ErrRecordNotFound if the
// account does not exist.
func (s *AccountStore) Update(ctx context.Context, account *Account) error {
	result := s.db.WithContext(ctx).Model(&Account{}).Where("id = ?", account.ID).
		Updates(map[string]any{
			"company_name": account.CompanyName,
			"email":        account.Email,
			"phone":        account.Phone,
		})
	if result.Error != nil {
		return fmt.Errorf("update account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes an account by id.
func (s *AccountStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&Account{}).Error
}

// List returns accounts matching an optional free-text search over company
// name and document, with offset-based pagination.
func (s *AccountStore) List(ctx context.Context, search string, offset, limit int) ([]Account, int64, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	q := s.db.WithContext(ctx).Model(&Account{})
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(company_name) LIKE ? OR LOWER(document) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}
	var accounts []Account
	if err := q.Order("company_name ASC").Offset(offset).Limit(limit).Find(&accounts).Error; err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, total, nil
}
