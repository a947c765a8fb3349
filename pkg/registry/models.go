package registry

import "time"

// Account is a tenant that may hold associations to drivers and vehicles.
// Resources are never owned structurally by an account, only associated.
type Account struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	CompanyName string    `gorm:"column:company_name;not null"`
	Document    string    `gorm:"column:document;uniqueIndex:idx_account_document;type:varchar(18);not null"`
	Email       string    `gorm:"column:email"`
	Phone       string    `gorm:"column:phone"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (Account) TableName() string { return "accounts" }

// Driver is a globally registered driver. CPF and CNH number are natural keys
// enforced here, system-wide, independent of any account.
type Driver struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	FullName    string    `gorm:"column:full_name;not null"`
	CPF         string    `gorm:"column:cpf;uniqueIndex:idx_driver_cpf;type:varchar(14);not null"`
	CNHNumber   string    `gorm:"column:cnh_number;uniqueIndex:idx_driver_cnh;type:varchar(16);not null"`
	CNHCategory string    `gorm:"column:cnh_category;type:varchar(4)"`
	Phone       string    `gorm:"column:phone"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (Driver) TableName() string { return "drivers" }

// Vehicle is a globally registered vehicle, keyed by license plate.
type Vehicle struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Plate     string    `gorm:"column:plate;uniqueIndex:idx_vehicle_plate;type:varchar(10);not null"`
	Brand     string    `gorm:"column:brand"`
	Model     string    `gorm:"column:model"`
	Year      int       `gorm:"column:year"`
	Color     string    `gorm:"column:color"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (Vehicle) TableName() string { return "vehicles" }

// VehicleGroup is a tenant-owned grouping of vehicles. Group names are unique
// within an account.
type VehicleGroup struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	AccountID   string    `gorm:"column:account_id;uniqueIndex:idx_group_account_name,priority:1;type:varchar(36);not null"`
	Name        string    `gorm:"column:name;uniqueIndex:idx_group_account_name,priority:2;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (VehicleGroup) TableName() string { return "vehicle_groups" }
