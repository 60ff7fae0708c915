package database

import (
	"log"

	"gorm.io/gorm"

	"github.com/smartclass-id/classroom_core_v1/internal/config"
	"github.com/smartclass-id/classroom_core_v1/internal/models"
	"github.com/smartclass-id/classroom_core_v1/internal/utils"
)

func SeedAdmin(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := cfg.AdminEmail
	if email == "" {
		email = "admin@example.com"
	}
	fullName := cfg.AdminFullName
	if fullName == "" {
		fullName = "Administrator"
	}
	password := cfg.AdminPassword
	if password == "" {
		password = "admin123"
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		FullName: fullName,
		Email:    email,
		Password: hashed,
		Role:     "admin",
		Active:   true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Println("Seeded initial admin:", email)
	return nil
}

// SeedDeviceInventory registers the demo batch of response devices so a fresh
// install can assign something. Real deployments load the batch shipped with
// the hardware.
func SeedDeviceInventory(db *gorm.DB) error {
	codes := []string{"A1B2", "C3D4", "E5F6", "G7H8", "J9K0", "L1M2", "N3P4", "Q5R6"}
	for _, code := range codes {
		var count int64
		if err := db.Model(&models.DeviceInventory{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&models.DeviceInventory{Code: code, Label: "clicker " + code}).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedStudents loads a demo roster on a fresh install. Production syncs the
// roster from the campus student API instead.
func SeedStudents(db *gorm.DB) error {
	students := []models.Student{
		{NIM: "0642001", FullName: "Andi Pratama"},
		{NIM: "0642002", FullName: "Budi Santoso"},
		{NIM: "0642003", FullName: "Citra Lestari"},
		{NIM: "0642004", FullName: "Dewi Anggraini"},
	}
	for _, st := range students {
		var count int64
		if err := db.Model(&models.Student{}).Where("nim = ?", st.NIM).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&st).Error; err != nil {
			return err
		}
	}
	return nil
}

// Roster returns every known student NIM for the attendance tracker.
func Roster(db *gorm.DB) ([]string, error) {
	var nims []string
	if err := db.Model(&models.Student{}).Order("nim").Pluck("nim", &nims).Error; err != nil {
		return nil, err
	}
	return nims, nil
}
