package models

import "time"

// KVEntry backs the persistence port: one row per key, value is opaque JSON
// owned by whichever tracker wrote it.
type KVEntry struct {
	Key       string `gorm:"primaryKey;size:191"`
	Value     []byte `gorm:"type:bytea"`
	UpdatedAt time.Time
}
