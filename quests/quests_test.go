package quests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"namesake/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Quest{}, &models.UserQuest{},
		&models.Faq{}, &models.QuestFaq{}, &models.Document{})
	return db
}

func setupTestRouter(questsModule *QuestsModule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))
	router.POST("/test-login/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		session := sessions.Default(c)
		session.Set("user_id", id)
		session.Save()
		c.Status(http.StatusOK)
	})
	questsModule.RegisterRoutes(router)
	return router
}

func loginAs(router *gin.Engine, userID int) []*http.Cookie {
	req, _ := http.NewRequest("POST", "/test-login/"+strconv.Itoa(userID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Result().Cookies()
}

func createTestAdmin(db *gorm.DB) *models.User {
	user := &models.User{
		Email:        "admin@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleAdmin,
	}
	db.Create(user)
	return user
}

func createTestQuest(db *gorm.DB, userID int) *models.Quest {
	quest := &models.Quest{
		Title:     "Test Quest",
		Slug:      "test-quest",
		Category:  models.CategoryPersonal,
		Content:   "Some content",
		CreatedBy: userID,
		UpdatedBy: userID,
	}
	db.Create(quest)
	return quest
}

func TestGenerateQuestSlug(t *testing.T) {
	tests := []struct {
		name         string
		title        string
		category     string
		jurisdiction string
		expected     string
	}{
		{"court order with jurisdiction", "Test Quest", models.CategoryCourtOrder, "MA", "court-order-ma"},
		{"birth certificate with jurisdiction", "Whatever Title", models.CategoryBirthCertificate, "NY", "birth-certificate-ny"},
		{"state id with jurisdiction", "Totally Ignored", models.CategoryStateID, "CA", "state-id-ca"},
		{"non-core category ignores jurisdiction", "Capital Bank INC", models.CategoryFinance, "MA", "capital-bank-inc"},
		{"court order without jurisdiction falls back to title", "My Court Quest", models.CategoryCourtOrder, "", "my-court-quest"},
		{"passport uses title", "Passport", models.CategoryPassport, "MA", "passport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateQuestSlug(tt.title, tt.category, tt.jurisdiction)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"Testing 123", "testing-123"},
		{"Multiple   Spaces", "multiple-spaces"},
		{"Special@#Characters!", "special-characters"},
		{"---Dashes---", "dashes"},
		{"Capital Bank INC", "capital-bank-inc"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, slugify(tt.input))
		})
	}
}

func TestSplitCamelCase(t *testing.T) {
	assert.Equal(t, "court Order", splitCamelCase("courtOrder"))
	assert.Equal(t, "state Id", splitCamelCase("stateId"))
	assert.Equal(t, "passport", splitCamelCase("passport"))
}

func TestCreateQuest_SlugCollision(t *testing.T) {
	db := setupTestDB()
	questsModule := NewQuestsModule(db)
	router := setupTestRouter(questsModule)

	admin := createTestAdmin(db)
	cookies := loginAs(router, admin.ID)

	body, _ := json.Marshal(map[string]any{
		"title":        "Test Quest",
		"category":     models.CategoryCourtOrder,
		"jurisdiction": "MA",
	})

	post := func() models.Quest {
		req, _ := http.NewRequest("POST", "/api/quests", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		var quest models.Quest
		json.Unmarshal(w.Body.Bytes(), &quest)
		return quest
	}

	first := post()
	second := post()

	assert.Equal(t, "court-order-ma", first.Slug)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, "court-order-ma-")
}

func TestCreateQuest_Unauthenticated(t *testing.T) {
	db := setupTestDB()
	questsModule := NewQuestsModule(db)
	router := setupTestRouter(questsModule)

	req, _ := http.NewRequest("POST", "/api/quests", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteFaq_CascadesToQuest(t *testing.T) {
	db := setupTestDB()
	questsModule := NewQuestsModule(db)
	router := setupTestRouter(questsModule)

	admin := createTestAdmin(db)
	quest := createTestQuest(db, admin.ID)

	faq := models.Faq{Question: "Is there a fee?", Answer: "Usually."}
	db.Create(&faq)
	db.Create(&models.QuestFaq{QuestID: quest.ID, FaqID: faq.ID})

	// Backdate the stamp so the cascade is observable.
	past := time.Now().Add(-time.Hour)
	db.Model(&models.Quest{}).Where("id = ?", quest.ID).UpdateColumns(map[string]any{
		"updated_at": past,
		"updated_by": 0,
	})

	cookies := loginAs(router, admin.ID)
	req, _ := http.NewRequest("DELETE", "/api/faqs/"+strconv.Itoa(int(faq.ID)), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var joinCount int64
	db.Model(&models.QuestFaq{}).Where("faq_id = ?", faq.ID).Count(&joinCount)
	assert.Equal(t, int64(0), joinCount)

	var faqCount int64
	db.Model(&models.Faq{}).Where("id = ?", faq.ID).Count(&faqCount)
	assert.Equal(t, int64(0), faqCount)

	var stamped models.Quest
	db.First(&stamped, quest.ID)
	assert.Equal(t, admin.ID, stamped.UpdatedBy)
	assert.True(t, stamped.UpdatedAt.After(past))
}

func TestSoftDeleteAndRestore(t *testing.T) {
	db := setupTestDB()
	admin := createTestAdmin(db)
	quest := createTestQuest(db, admin.ID)

	now := time.Now()
	quest.DeletedAt = &now
	db.Save(quest)

	var deleted models.Quest
	db.First(&deleted, quest.ID)
	assert.NotNil(t, deleted.DeletedAt)

	deleted.DeletedAt = nil
	db.Save(&deleted)

	var restored models.Quest
	db.First(&restored, quest.ID)
	assert.Nil(t, restored.DeletedAt)
}

func TestHardDelete_RemovesUserQuests(t *testing.T) {
	db := setupTestDB()
	questsModule := NewQuestsModule(db)
	router := setupTestRouter(questsModule)

	admin := createTestAdmin(db)
	quest := createTestQuest(db, admin.ID)
	db.Create(&models.UserQuest{UserID: admin.ID, QuestID: quest.ID, Status: models.StatusNotStarted})

	cookies := loginAs(router, admin.ID)
	req, _ := http.NewRequest("DELETE", "/api/quests/"+strconv.Itoa(int(quest.ID))+"/permanent", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var questCount, userQuestCount int64
	db.Model(&models.Quest{}).Where("id = ?", quest.ID).Count(&questCount)
	db.Model(&models.UserQuest{}).Where("quest_id = ?", quest.ID).Count(&userQuestCount)
	assert.Equal(t, int64(0), questCount)
	assert.Equal(t, int64(0), userQuestCount)
}

func TestDeleteDocument_StampsQuest(t *testing.T) {
	db := setupTestDB()
	questsModule := NewQuestsModule(db)
	router := setupTestRouter(questsModule)

	admin := createTestAdmin(db)
	quest := createTestQuest(db, admin.ID)

	document := models.Document{QuestID: quest.ID, Title: "Petition", Code: "CJP 27"}
	db.Create(&document)

	past := time.Now().Add(-time.Hour)
	db.Model(&models.Quest{}).Where("id = ?", quest.ID).UpdateColumns(map[string]any{
		"updated_at": past,
		"updated_by": 0,
	})

	cookies := loginAs(router, admin.ID)
	req, _ := http.NewRequest("DELETE", "/api/documents/"+strconv.Itoa(int(document.ID)), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.Document{}).Where("id = ?", document.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	var stamped models.Quest
	db.First(&stamped, quest.ID)
	assert.Equal(t, admin.ID, stamped.UpdatedBy)
	assert.True(t, stamped.UpdatedAt.After(past))
}

func TestGetQuest_MissingReturnsNull(t *testing.T) {
	db := setupTestDB()
	questsModule := NewQuestsModule(db)
	router := setupTestRouter(questsModule)

	admin := createTestAdmin(db)
	cookies := loginAs(router, admin.ID)

	req, _ := http.NewRequest("GET", "/api/quests/9999", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())
}

func TestRenderMarkdown(t *testing.T) {
	html := renderMarkdown("# Heading\n\nSome **bold** text.")
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<strong>bold</strong>")
}
