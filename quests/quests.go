package quests

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"namesake/auth"
	"namesake/models"
)

type QuestsModule struct {
	db *gorm.DB
}

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // allow raw HTML passthrough in Markdown
	),
)

func NewQuestsModule(db *gorm.DB) *QuestsModule {
	return &QuestsModule{db: db}
}

func (q *QuestsModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(auth.RequireAuth)
	{
		api.GET("/quests", q.listQuests)
		api.GET("/quests/:id", q.getQuest)
		api.GET("/quests/slug/:slug", q.getQuestBySlug)
		api.POST("/quests", q.createQuest)
		api.GET("/quests/:id/faqs", q.listQuestFaqs)
		api.GET("/quests/:id/documents", q.listQuestDocuments)
		api.GET("/faqs", q.listFaqs)
	}

	adminAPI := router.Group("/api")
	adminAPI.Use(auth.RequireAuth, auth.RequireRole(q.db, models.RoleAdmin))
	{
		adminAPI.PUT("/quests/:id/title", q.setTitle)
		adminAPI.PUT("/quests/:id/category", q.setCategory)
		adminAPI.PUT("/quests/:id/jurisdiction", q.setJurisdiction)
		adminAPI.PUT("/quests/:id/costs", q.setCosts)
		adminAPI.PUT("/quests/:id/time", q.setTimeRequired)
		adminAPI.PUT("/quests/:id/content", q.setContent)
		adminAPI.DELETE("/quests/:id", q.softDeleteQuest)
		adminAPI.POST("/quests/:id/restore", q.restoreQuest)
		adminAPI.DELETE("/quests/:id/permanent", q.hardDeleteQuest)
		adminAPI.POST("/quests/:id/faqs", q.attachFaq)
		adminAPI.DELETE("/quests/:id/faqs/:faqId", q.detachFaq)
		adminAPI.POST("/faqs", q.createFaq)
		adminAPI.PUT("/faqs/:id", q.updateFaq)
		adminAPI.DELETE("/faqs/:id", q.deleteFaq)
		adminAPI.POST("/documents", q.createDocument)
		adminAPI.DELETE("/documents/:id", q.deleteDocument)
	}
}

// Categories whose quests exist once per jurisdiction. Their slugs come from
// the category name plus the jurisdiction code, not the title.
var jurisdictionCategories = map[string]bool{
	models.CategoryCourtOrder:       true,
	models.CategoryBirthCertificate: true,
	models.CategoryStateID:          true,
}

// GenerateQuestSlug derives the URL slug for a quest. Jurisdiction-specific
// categories yield e.g. "court-order-ma"; everything else slugifies the title.
func GenerateQuestSlug(title, category, jurisdiction string) string {
	if jurisdictionCategories[category] && jurisdiction != "" {
		return slugify(splitCamelCase(category)) + "-" + strings.ToLower(jurisdiction)
	}
	return slugify(title)
}

func slugify(title string) string {
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, slug)

	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return strings.Trim(slug, "-")
}

func splitCamelCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func shortSuffix() string {
	return uuid.NewString()[:6]
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return content
	}
	return buf.String()
}

// stampQuest records who touched a quest last. Every mutation that reaches a
// quest row goes through here.
func (q *QuestsModule) stampQuest(quest *models.Quest, userID int) error {
	quest.UpdatedAt = time.Now()
	quest.UpdatedBy = userID
	return q.db.Save(quest).Error
}

func (q *QuestsModule) findQuest(id string) (*models.Quest, error) {
	var quest models.Quest
	err := q.db.First(&quest, "id = ?", id).Error
	return &quest, err
}

func (q *QuestsModule) listQuests(c *gin.Context) {
	query := q.db.Where("deleted_at IS NULL")

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if jurisdiction := c.Query("jurisdiction"); jurisdiction != "" {
		query = query.Where("jurisdiction = ?", jurisdiction)
	}

	var quests []models.Quest
	if err := query.Order("title ASC").Find(&quests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading quests"})
		return
	}
	if quests == nil {
		quests = []models.Quest{}
	}

	c.JSON(http.StatusOK, quests)
}

func (q *QuestsModule) getQuest(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		// Missing quests are not an error for readers.
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quest":        quest,
		"content_html": renderMarkdown(quest.Content),
	})
}

func (q *QuestsModule) getQuestBySlug(c *gin.Context) {
	var quest models.Quest
	if err := q.db.Where("slug = ?", c.Param("slug")).First(&quest).Error; err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quest":        &quest,
		"content_html": renderMarkdown(quest.Content),
	})
}

func (q *QuestsModule) createQuest(c *gin.Context) {
	userID := c.GetInt("user_id")

	var request struct {
		Title        string              `json:"title"`
		Category     string              `json:"category"`
		Jurisdiction string              `json:"jurisdiction"`
		Costs        []models.Cost       `json:"costs"`
		TimeRequired models.TimeRequired `json:"time_required"`
		Content      string              `json:"content"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if request.Title == "" || !models.ValidCategory(request.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and a valid category are required"})
		return
	}
	if request.Jurisdiction != "" && !models.ValidJurisdiction(request.Jurisdiction) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid jurisdiction"})
		return
	}

	slug := GenerateQuestSlug(request.Title, request.Category, request.Jurisdiction)

	// Best-effort uniqueness: read-then-insert, with the unique column as a
	// backstop. On collision a short random suffix keeps the slug distinct.
	var existing models.Quest
	if err := q.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		slug = slug + "-" + shortSuffix()
	}

	quest := models.Quest{
		Title:        request.Title,
		Slug:         slug,
		Category:     request.Category,
		Jurisdiction: request.Jurisdiction,
		Costs:        request.Costs,
		TimeRequired: request.TimeRequired,
		Content:      request.Content,
		CreatedBy:    userID,
		UpdatedBy:    userID,
	}

	if err := q.db.Create(&quest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating quest"})
		return
	}

	c.JSON(http.StatusOK, quest)
}

func (q *QuestsModule) setTitle(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	var request struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	quest.Title = request.Title
	if err := q.stampQuest(quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating quest"})
		return
	}

	c.JSON(http.StatusOK, quest)
}

func (q *QuestsModule) setCategory(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	var request struct {
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || !models.ValidCategory(request.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid category is required"})
		return
	}

	quest.Category = request.Category
	if err := q.stampQuest(quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating quest"})
		return
	}

	c.JSON(http.StatusOK, quest)
}

func (q *QuestsModule) setJurisdiction(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	var request struct {
		Jurisdiction string `json:"jurisdiction"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if request.Jurisdiction != "" && !models.ValidJurisdiction(request.Jurisdiction) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid jurisdiction"})
		return
	}

	quest.Jurisdiction = request.Jurisdiction
	if err := q.stampQuest(quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating quest"})
		return
	}

	c.JSON(http.StatusOK, quest)
}

func (q *QuestsModule) setCosts(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	var request struct {
		Costs []models.Cost `json:"costs"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	quest.Costs = request.Costs
	if err := q.stampQuest(quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating quest"})
		return
	}

	c.JSON(http.StatusOK, quest)
}

func (q *QuestsModule) setTimeRequired(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	var request struct {
		TimeRequired models.TimeRequired `json:"time_required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	quest.TimeRequired = request.TimeRequired
	if err := q.stampQuest(quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating quest"})
		return
	}

	c.JSON(http.StatusOK, quest)
}

func (q *QuestsModule) setContent(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	var request struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	quest.Content = request.Content
	if err := q.stampQuest(quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating quest"})
		return
	}

	c.JSON(http.StatusOK, quest)
}

func (q *QuestsModule) softDeleteQuest(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	now := time.Now()
	quest.DeletedAt = &now
	if err := q.stampQuest(quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting quest"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quest deleted"})
}

func (q *QuestsModule) restoreQuest(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	quest.DeletedAt = nil
	if err := q.stampQuest(quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error restoring quest"})
		return
	}

	c.JSON(http.StatusOK, quest)
}

// hardDeleteQuest removes the quest and everything hanging off it: user
// progress records, FAQ associations and document records.
func (q *QuestsModule) hardDeleteQuest(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	if err := q.db.Where("quest_id = ?", quest.ID).Delete(&models.UserQuest{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting quest"})
		return
	}
	if err := q.db.Where("quest_id = ?", quest.ID).Delete(&models.QuestFaq{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting quest"})
		return
	}
	if err := q.db.Where("quest_id = ?", quest.ID).Delete(&models.Document{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting quest"})
		return
	}
	if err := q.db.Delete(quest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting quest"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quest permanently deleted"})
}

func (q *QuestsModule) listFaqs(c *gin.Context) {
	var faqs []models.Faq
	if err := q.db.Order("created_at ASC").Find(&faqs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading FAQs"})
		return
	}
	if faqs == nil {
		faqs = []models.Faq{}
	}
	c.JSON(http.StatusOK, faqs)
}

func (q *QuestsModule) listQuestFaqs(c *gin.Context) {
	var joins []models.QuestFaq
	if err := q.db.Where("quest_id = ?", c.Param("id")).Order("position ASC").Find(&joins).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading FAQs"})
		return
	}

	faqs := []models.Faq{}
	for _, join := range joins {
		var faq models.Faq
		if err := q.db.First(&faq, join.FaqID).Error; err == nil {
			faqs = append(faqs, faq)
		}
	}

	c.JSON(http.StatusOK, faqs)
}

func (q *QuestsModule) createFaq(c *gin.Context) {
	var request struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question is required"})
		return
	}

	faq := models.Faq{Question: request.Question, Answer: request.Answer}
	if err := q.db.Create(&faq).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating FAQ"})
		return
	}

	c.JSON(http.StatusOK, faq)
}

func (q *QuestsModule) updateFaq(c *gin.Context) {
	var faq models.Faq
	if err := q.db.First(&faq, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "FAQ not found"})
		return
	}

	var request struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if request.Question != "" {
		faq.Question = request.Question
	}
	faq.Answer = request.Answer
	faq.UpdatedAt = time.Now()

	if err := q.db.Save(&faq).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating FAQ"})
		return
	}

	c.JSON(http.StatusOK, faq)
}

// deleteFaq cascades: every quest referencing the FAQ loses the reference and
// gets its updatedAt/updatedBy stamped.
func (q *QuestsModule) deleteFaq(c *gin.Context) {
	userID := c.GetInt("user_id")

	var faq models.Faq
	if err := q.db.First(&faq, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "FAQ not found"})
		return
	}

	var joins []models.QuestFaq
	if err := q.db.Where("faq_id = ?", faq.ID).Find(&joins).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting FAQ"})
		return
	}

	for _, join := range joins {
		if err := q.db.Delete(&models.QuestFaq{}, join.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting FAQ"})
			return
		}
		var quest models.Quest
		if err := q.db.First(&quest, join.QuestID).Error; err == nil {
			if err := q.stampQuest(&quest, userID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting FAQ"})
				return
			}
		}
	}

	if err := q.db.Delete(&faq).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting FAQ"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "FAQ deleted"})
}

func (q *QuestsModule) attachFaq(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	var request struct {
		FaqID uint `json:"faq_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var faq models.Faq
	if err := q.db.First(&faq, request.FaqID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "FAQ not found"})
		return
	}

	var count int64
	q.db.Model(&models.QuestFaq{}).Where("quest_id = ?", quest.ID).Count(&count)

	join := models.QuestFaq{QuestID: quest.ID, FaqID: faq.ID, Position: int(count)}
	if err := q.db.Create(&join).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error attaching FAQ"})
		return
	}

	if err := q.stampQuest(quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error attaching FAQ"})
		return
	}

	c.JSON(http.StatusOK, join)
}

func (q *QuestsModule) detachFaq(c *gin.Context) {
	quest, err := q.findQuest(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	faqID, err := strconv.Atoi(c.Param("faqId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid FAQ id"})
		return
	}

	result := q.db.Where("quest_id = ? AND faq_id = ?", quest.ID, faqID).Delete(&models.QuestFaq{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error detaching FAQ"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "FAQ not found"})
		return
	}

	if err := q.stampQuest(quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error detaching FAQ"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "FAQ detached"})
}

func (q *QuestsModule) listQuestDocuments(c *gin.Context) {
	var documents []models.Document
	if err := q.db.Where("quest_id = ?", c.Param("id")).Order("title ASC").Find(&documents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading documents"})
		return
	}
	if documents == nil {
		documents = []models.Document{}
	}
	c.JSON(http.StatusOK, documents)
}

func (q *QuestsModule) createDocument(c *gin.Context) {
	var request struct {
		QuestID    uint   `json:"quest_id"`
		Title      string `json:"title"`
		Code       string `json:"code"`
		SourcePath string `json:"source_path"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	var quest models.Quest
	if err := q.db.First(&quest, request.QuestID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
		return
	}

	document := models.Document{
		QuestID:    quest.ID,
		Title:      request.Title,
		Code:       request.Code,
		SourcePath: request.SourcePath,
	}
	if err := q.db.Create(&document).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating document"})
		return
	}

	if err := q.stampQuest(&quest, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating document"})
		return
	}

	c.JSON(http.StatusOK, document)
}

func (q *QuestsModule) deleteDocument(c *gin.Context) {
	var document models.Document
	if err := q.db.First(&document, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if err := q.db.Delete(&document).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting document"})
		return
	}

	var quest models.Quest
	if err := q.db.First(&quest, document.QuestID).Error; err == nil {
		if err := q.stampQuest(&quest, c.GetInt("user_id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting document"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}
