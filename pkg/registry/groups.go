package registry

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GroupStore provides tenant-scoped CRUD operations for vehicle groups.
// Every lookup binds the account id so one tenant can never read or mutate
// another tenant's groups.
type GroupStore struct {
	db *gorm.DB
}

// NewGroupStore creates a new GroupStore.
func NewGroupStore(db *gorm.DB) *GroupStore {
	return &GroupStore{db: db}
}

// AutoMigrate creates or updates the vehicle_groups table.
func (s *GroupStore) AutoMigrate() error {
	return s.db.AutoMigrate(&VehicleGroup{})
}

// Create inserts a new group owned by the given account.
func (s *GroupStore) Create(ctx context.Context, group *VehicleGroup) error {
	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("create vehicle group: %w", err)
	}
	return nil
}

// Get retrieves a group by id scoped to an account. Returns nil, nil if the
// group does not exist or belongs to a different account.
func (s *GroupStore) Get(ctx context.Context, id, accountID string) (*VehicleGroup, error) {
	var group VehicleGroup
	err := s.db.WithContext(ctx).Where("id = ? AND account_id = ?", id, accountID).First(&group).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get vehicle group: %w", err)
	}
	return &group, nil
}

// Exists reports whether a group with the given id is owned by the account.
func (s *GroupStore) Exists(ctx context.Context, id, accountID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&VehicleGroup{}).
		Where("id = ? AND account_id = ?", id, accountID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check vehicle group exists: %w", err)
	}
	return count > 0, nil
}

// Update saves changed group fields scoped to an account. Returns
// gorm.ErrRecordNotFound if no matching group exists.
func (s *GroupStore) Update(ctx context.Context, group *VehicleGroup) error {
	result := s.db.WithContext(ctx).Model(&VehicleGroup{}).
		Where("id = ? AND account_id = ?", group.ID, group.AccountID).
		Updates(map[string]any{
			"name":        group.Name,
			"description": group.Description,
		})
	if result.Error != nil {
		return fmt.Errorf("update vehicle group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a group scoped to an account.
func (s *GroupStore) Delete(ctx context.Context, id, accountID string) error {
	return s.db.WithContext(ctx).Where("id = ? AND account_id = ?", id, accountID).
		Delete(&VehicleGroup{}).Error
}

// List returns all groups owned by the account.
func (s *GroupStore) List(ctx context.Context, accountID string) ([]VehicleGroup, error) {
	var groups []VehicleGroup
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).
		Order("name ASC").Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("list vehicle groups: %w", err)
	}
	return groups, nil
}
