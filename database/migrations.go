package database

import (
	"log"

	"namesake/models"

	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.UserSettings{},
		&models.UserData{},
		&models.Quest{},
		&models.UserQuest{},
		&models.UserQuestPlaceholder{},
		&models.EarlyAccessCode{},
		&models.Faq{},
		&models.QuestFaq{},
		&models.Document{},
		&models.Form{},
		&models.FormPage{},
		&models.FormField{},
	)

	if err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Migrations completed successfully")
	return nil
}
