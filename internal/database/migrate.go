package database

import (
	"fmt"
	"log"
	"time"

	"github.com/careloop/api/internal/model"
	"gorm.io/gorm"
)

// SchemaMigration records an applied migration. The serving process never
// mutates the schema; cmd/migrate applies pending steps at deploy time and
// CheckVersion gates server startup.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey"`
	Name      string    `gorm:"not null;size:255"`
	AppliedAt time.Time `gorm:"not null"`
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

type Migration struct {
	Version int
	Name    string
	Run     func(tx *gorm.DB) error
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create identity tables",
		Run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.User{}, &model.Therapist{}, &model.Patient{})
		},
	},
	{
		Version: 2,
		Name:    "create journal and tag tables",
		Run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.Tag{}, &model.JournalEntry{}, &model.Reflection{})
		},
	},
	{
		Version: 3,
		Name:    "create session and material tables",
		Run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&model.Resource{},
				&model.SharedResource{},
				&model.Comment{},
				&model.Favorite{},
				&model.TherapySession{},
				&model.SessionDocument{},
				&model.SessionResource{},
			)
		},
	},
	{
		Version: 4,
		Name:    "create message and note tables",
		Run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&model.Message{}, &model.Note{})
		},
	},
}

// RequiredVersion is the schema version this build expects.
var RequiredVersion = migrations[len(migrations)-1].Version

// Migrate applies all pending migrations, each in its own transaction.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return err
	}

	current, err := CurrentVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		log.Printf("Applying migration %d: %s", m.Version, m.Name)
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Run(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: time.Now(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// CurrentVersion returns the highest applied migration version, 0 if none.
func CurrentVersion(db *gorm.DB) (int, error) {
	if !db.Migrator().HasTable(&SchemaMigration{}) {
		return 0, nil
	}
	var version *int
	err := db.Model(&SchemaMigration{}).Select("MAX(version)").Scan(&version).Error
	if err != nil {
		return 0, err
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}

// CheckVersion fails when the database schema is behind this build.
func CheckVersion(db *gorm.DB) error {
	current, err := CurrentVersion(db)
	if err != nil {
		return err
	}
	if current < RequiredVersion {
		return fmt.Errorf("database schema at version %d, need %d: run cmd/migrate", current, RequiredVersion)
	}
	return nil
}
