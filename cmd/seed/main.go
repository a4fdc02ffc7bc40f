package main

import (
	"flag"
	"log"

	"github.com/careloop/api/internal/auth"
	"github.com/careloop/api/internal/config"
	"github.com/careloop/api/internal/database"
	"github.com/careloop/api/internal/model"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// Seeds the admin account and the built-in global tags. Safe to re-run.
func main() {
	adminEmail := flag.String("admin-email", "admin@careloop.local", "Admin account email")
	adminPassword := flag.String("admin-password", "", "Admin account password (required on first run)")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.CheckVersion(db); err != nil {
		log.Fatalf("Schema check failed: %v", err)
	}

	if err := seedAdmin(db, *adminEmail, *adminPassword); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	if err := seedGlobalTags(db); err != nil {
		log.Fatalf("Failed to seed global tags: %v", err)
	}

	log.Println("Seed complete")
}

func seedAdmin(db *gorm.DB, email, password string) error {
	var existing model.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("Admin %s already exists, skipping", email)
		return nil
	}

	if password == "" {
		log.Fatal("-admin-password is required when the admin account does not exist yet")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("Created admin %s", email)
	return nil
}

var globalTags = []model.Tag{
	{Type: model.TagTypeEmotion, Name: "happy"},
	{Type: model.TagTypeEmotion, Name: "sad"},
	{Type: model.TagTypeEmotion, Name: "anxious"},
	{Type: model.TagTypeEmotion, Name: "calm"},
	{Type: model.TagTypeWeather, Name: "sunny"},
	{Type: model.TagTypeWeather, Name: "rainy"},
	{Type: model.TagTypeWeather, Name: "cloudy"},
	{Type: model.TagTypeActivity, Name: "exercise"},
	{Type: model.TagTypeActivity, Name: "work"},
	{Type: model.TagTypeActivity, Name: "sleep"},
}

func seedGlobalTags(db *gorm.DB) error {
	created := 0
	for _, tag := range globalTags {
		tag.IsGlobal = true
		err := db.Where("type = ? AND name = ? AND patient_id IS NULL", tag.Type, tag.Name).
			FirstOrCreate(&tag).Error
		if err != nil {
			return err
		}
		created++
	}
	log.Printf("Ensured %d global tags", created)
	return nil
}
