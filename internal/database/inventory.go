package database

import (
	"gorm.io/gorm"

	"github.com/smartclass-id/classroom_core_v1/internal/models"
)

// Inventory answers device-code membership from the device_inventories table.
// Implements registry.Inventory.
type Inventory struct {
	DB *gorm.DB
}

func NewInventory(db *gorm.DB) *Inventory {
	return &Inventory{DB: db}
}

func (i *Inventory) Contains(code string) (bool, error) {
	var count int64
	if err := i.DB.Model(&models.DeviceInventory{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
