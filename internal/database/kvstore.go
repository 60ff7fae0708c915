package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/smartclass-id/classroom_core_v1/internal/models"
)

// KVStore implements the trackers' persistence port on the kv_entries table.
type KVStore struct {
	DB *gorm.DB
}

func NewKVStore(db *gorm.DB) *KVStore {
	return &KVStore{DB: db}
}

func (s *KVStore) Get(key string) ([]byte, bool, error) {
	var entry models.KVEntry
	if err := s.DB.Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (s *KVStore) Set(key string, value []byte) error {
	entry := models.KVEntry{Key: key, Value: value}
	return s.DB.Save(&entry).Error
}

func (s *KVStore) Delete(key string) error {
	return s.DB.Where("key = ?", key).Delete(&models.KVEntry{}).Error
}

func (s *KVStore) List(prefix string) (map[string][]byte, error) {
	var entries []models.KVEntry
	pattern := strings.ReplaceAll(strings.ReplaceAll(prefix, `\`, `\\`), "%", `\%`) + "%"
	if err := s.DB.Where("key LIKE ?", pattern).Find(&entries).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}
