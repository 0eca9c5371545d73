package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"namesake/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, RunMigrations(db))
	return db
}

func TestSeedData(t *testing.T) {
	db := setupTestDB(t)

	assert.NoError(t, SeedData(db, 1))

	var count int64
	db.Model(&models.Quest{}).Count(&count)
	assert.Equal(t, int64(len(seedQuests)), count)

	var courtOrder models.Quest
	assert.NoError(t, db.Where("slug = ?", "court-order-ma").First(&courtOrder).Error)
	assert.Equal(t, models.CategoryCourtOrder, courtOrder.Category)
	assert.Equal(t, 1, courtOrder.CreatedBy)
}

func TestSeedData_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	assert.NoError(t, SeedData(db, 1))
	assert.NoError(t, SeedData(db, 2))

	var count int64
	db.Model(&models.Quest{}).Count(&count)
	assert.Equal(t, int64(len(seedQuests)), count)

	// Reseeding leaves existing rows untouched.
	var courtOrder models.Quest
	db.Where("slug = ?", "court-order-ma").First(&courtOrder)
	assert.Equal(t, 1, courtOrder.CreatedBy)
}
