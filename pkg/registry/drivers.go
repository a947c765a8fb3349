package registry

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// DriverStore provides CRUD operations for globally registered drivers.
type DriverStore struct {
	db *gorm.DB
}

// NewDriverStore creates a new DriverStore.
func NewDriverStore(db *gorm.DB) *DriverStore {
	return &DriverStore{db: db}
}

// AutoMigrate creates or updates the drivers table.
func (s *DriverStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Driver{})
}

// Create inserts a new driver. CPF and CNH uniqueness is enforced by the
// database, not per tenant.
func (s *DriverStore) Create(ctx context.Context, driver *Driver) error {
	if err := s.db.WithContext(ctx).Create(driver).Error; err != nil {
		return fmt.Errorf("create driver: %w", err)
	}
	return nil
}

// Get retrieves a driver by id. Returns nil, nil if no driver exists.
func (s *DriverStore) Get(ctx context.Context, id string) (*Driver, error) {
	var driver Driver
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&driver).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get driver: %w", err)
	}
	return &driver, nil
}

// GetByCPF retrieves a driver by its CPF natural key. Returns nil, nil if no
// driver exists.
func (s *DriverStore) GetByCPF(ctx context.Context, cpf string) (*Driver, error) {
	var driver Driver
	err := s.db.WithContext(ctx).Where("cpf = ?", cpf).First(&driver).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get driver by cpf: %w", err)
	}
	return &driver, nil
}

// Exists reports whether a driver with the given id is registered.
func (s *DriverStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Driver{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check driver exists: %w", err)
	}
	return count > 0, nil
}

// Update saves changed driver fields. Returns gorm.ErrRecordNotFound if the
// driver does not exist.
func (s *DriverStore) Update(ctx context.Context, driver *Driver) error {
	result := s.db.WithContext(ctx).Model(&Driver{}).Where("id = ?", driver.ID).
		Updates(map[string]any{
			"full_name":    driver.FullName,
			"cnh_category": driver.CNHCategory,
			"phone":        driver.Phone,
		})
	if result.Error != nil {
		return fmt.Errorf("update driver: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a driver by id.
func (s *DriverStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&Driver{}).Error
}

// List returns drivers matching an optional free-text search over full name,
// CPF and CNH number, with offset-based pagination.
func (s *DriverStore) List(ctx context.Context, search string, offset, limit int) ([]Driver, int64, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	q := s.db.WithContext(ctx).Model(&Driver{})
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR LOWER(cpf) LIKE ? OR LOWER(cnh_number) LIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count drivers: %w", err)
	}
	var drivers []Driver
	if err := q.Order("full_name ASC").Offset(offset).Limit(limit).Find(&drivers).Error; err != nil {
		return nil, 0, fmt.Errorf("list drivers: %w", err)
	}
	return drivers, total, nil
}
