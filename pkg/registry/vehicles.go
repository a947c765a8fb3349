package registry

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// VehicleStore provides CRUD operations for globally registered vehicles.
// Ownership-sensitive operations (physical edits, deletion) are guarded by the
// association engine, not here.
type VehicleStore struct {
	db *gorm.DB
}

// NewVehicleStore creates a new VehicleStore.
func NewVehicleStore(db *gorm.DB) *VehicleStore {
	return &VehicleStore{db: db}
}

// AutoMigrate creates or updates the vehicles table.
func (s *VehicleStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Vehicle{})
}

// Create inserts a new vehicle. Plate uniqueness is enforced by the database,
// system-wide.
func (s *VehicleStore) Create(ctx context.Context, vehicle *Vehicle) error {
	if err := s.db.WithContext(ctx).Create(vehicle).Error; err != nil {
		return fmt.Errorf("create vehicle: %w", err)
	}
	return nil
}

// Get retrieves a vehicle by id. Returns nil, nil if no vehicle exists.
func (s *VehicleStore) Get(ctx context.Context, id string) (*Vehicle, error) {
	var vehicle Vehicle
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&vehicle).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return &vehicle, nil
}

// GetByPlate retrieves a vehicle by its license plate. Returns nil, nil if no
// vehicle exists.
func (s *VehicleStore) GetByPlate(ctx context.Context, plate string) (*Vehicle, error) {
	var vehicle Vehicle
	err := s.db.WithContext(ctx).Where("plate = ?", plate).First(&vehicle).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get vehicle by plate: %w", err)
	}
	return &vehicle, nil
}

// Exists reports whether a vehicle with the given id is registered.
func (s *VehicleStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Vehicle{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check vehicle exists: %w", err)
	}
	return count > 0, nil
}

// UpdatePhysical saves the vehicle's physical fields. The caller is expected
// to have passed the exclusive-holder authorization check first. Returns
// gorm.ErrRecordNotFound if the vehicle does not exist.
func (s *VehicleStore) UpdatePhysical(ctx context.Context, vehicle *Vehicle) error {
	result := s.db.WithContext(ctx).Model(&Vehicle{}).Where("id = ?", vehicle.ID).
		Updates(map[string]any{
			"brand": vehicle.Brand,
			"model": vehicle.Model,
			"year":  vehicle.Year,
			"color": vehicle.Color,
		})
	if result.Error != nil {
		return fmt.Errorf("update vehicle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns vehicles matching an optional free-text search over plate,
// brand and model, with offset-based pagination.
func (s *VehicleStore) List(ctx context.Context, search string, offset, limit int) ([]Vehicle, int64, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	q := s.db.WithContext(ctx).Model(&Vehicle{})
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(plate) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(model) LIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}
	var vehicles []Vehicle
	if err := q.Order("plate ASC").Offset(offset).Limit(limit).Find(&vehicles).Error; err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, total, nil
}
