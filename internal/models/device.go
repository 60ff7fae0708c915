package models

import "time"

// DeviceInventory is the set of device codes that physically exist. A code
// must be present here before a student can claim it.
type DeviceInventory struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"uniqueIndex;size:4"`
	Label     string `gorm:"size:64"`
	CreatedAt time.Time
}
