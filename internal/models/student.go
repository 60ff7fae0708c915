package models

import "time"

// Student is the class roster entry attendance partitions over. Profile data
// lives in the campus systems; only the NIM and a display name are mirrored
// here.
type Student struct {
	ID        uint   `gorm:"primaryKey"`
	NIM       string `gorm:"uniqueIndex;size:32"`
	FullName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
