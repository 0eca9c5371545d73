package common

import (
	"log"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func ConnectDb() *gorm.DB {
	dbFile := os.Getenv("sqlite_db")
	if dbFile == "" {
		log.Println("sqlite_db not set")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(dbFile), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Println("Error opening sqlite db: " + err.Error())
		return nil
	}
	log.Println("opened sqlite db at:", dbFile)
	return db
}

// IsDevelopment reports whether the app runs with development defaults:
// new accounts get the admin role, seed data is loaded and early-access
// gating is disabled.
func IsDevelopment() bool {
	return os.Getenv("APP_ENV") != "production"
}
