package database

import (
	"log"

	"namesake/models"
	"namesake/quests"

	"gorm.io/gorm"
)

type seedQuest struct {
	title        string
	category     string
	jurisdiction string
	costs        []models.Cost
	time         models.TimeRequired
	content      string
}

var seedQuests = []seedQuest{
	{
		title:        "Court Order Name Change",
		category:     models.CategoryCourtOrder,
		jurisdiction: "MA",
		costs: []models.Cost{
			{Amount: 15000, Description: "Filing fee", IsRequired: true},
			{Amount: 1500, Description: "Certified copies", IsRequired: false},
		},
		time:    models.TimeRequired{Min: 2, Max: 6, Unit: "weeks"},
		content: "File a Petition to Change Name of Adult (CJP 27) with the probate court in your county.",
	},
	{
		title:        "Birth Certificate",
		category:     models.CategoryBirthCertificate,
		jurisdiction: "MA",
		costs:        []models.Cost{{Amount: 5000, Description: "Amendment fee", IsRequired: true}},
		time:         models.TimeRequired{Min: 4, Max: 8, Unit: "weeks"},
		content:      "Amend your birth record with the Registry of Vital Records once your court order is in hand.",
	},
	{
		title:        "State ID",
		category:     models.CategoryStateID,
		jurisdiction: "MA",
		costs:        []models.Cost{{Amount: 2500, Description: "Duplicate license fee", IsRequired: true}},
		time:         models.TimeRequired{Min: 1, Max: 2, Unit: "weeks"},
		content:      "Update your license or ID at the RMV. Bring your court order and proof of residency.",
	},
	{
		title:    "Social Security",
		category: models.CategorySocialSecurity,
		costs:    nil,
		time:     models.TimeRequired{Min: 2, Max: 4, Unit: "weeks"},
		content:  "Update your record with the SSA using form SS-5. There is no fee.",
	},
	{
		title:    "Passport",
		category: models.CategoryPassport,
		costs:    []models.Cost{{Amount: 13000, Description: "Passport book fee", IsRequired: true}},
		time:     models.TimeRequired{Min: 6, Max: 12, Unit: "weeks"},
		content:  "Apply with form DS-11 or DS-5504 depending on how recently your passport was issued.",
	},
}

// SeedData loads the starter quest catalog. Idempotent: quests that already
// exist (by slug) are left alone.
func SeedData(db *gorm.DB, createdBy int) error {
	for _, s := range seedQuests {
		slug := quests.GenerateQuestSlug(s.title, s.category, s.jurisdiction)

		var existing models.Quest
		if err := db.Where("slug = ?", slug).First(&existing).Error; err == nil {
			continue
		}

		quest := models.Quest{
			Title:        s.title,
			Slug:         slug,
			Category:     s.category,
			Jurisdiction: s.jurisdiction,
			Costs:        s.costs,
			TimeRequired: s.time,
			Content:      s.content,
			CreatedBy:    createdBy,
			UpdatedBy:    createdBy,
		}
		if err := db.Create(&quest).Error; err != nil {
			return err
		}
		log.Printf("seeded quest %s", slug)
	}
	return nil
}
