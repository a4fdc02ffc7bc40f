package main

import (
	"flag"
	"log"

	"github.com/careloop/api/internal/config"
	"github.com/careloop/api/internal/database"
	"github.com/joho/godotenv"
)

func main() {
	check := flag.Bool("check", false, "Report the schema version without applying anything")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	current, err := database.CurrentVersion(db)
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	log.Printf("Schema at version %d, build needs %d", current, database.RequiredVersion)

	if *check {
		if current < database.RequiredVersion {
			log.Fatal("Schema is behind")
		}
		return
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations complete")
}
