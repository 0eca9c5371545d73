package userquests

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"namesake/auth"
	"namesake/models"
)

var (
	ErrInvalidStatus       = errors.New("Invalid status")
	ErrQuestExists         = errors.New("Quest already exists for user")
	ErrUserQuestNotFound   = errors.New("User quest not found")
	ErrPlaceholderNotFound = errors.New("Placeholder not found")
)

type UserQuestsModule struct {
	db *gorm.DB
}

func NewUserQuestsModule(db *gorm.DB) *UserQuestsModule {
	return &UserQuestsModule{db: db}
}

func (u *UserQuestsModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(auth.RequireAuth)
	{
		api.GET("/user-quests", u.listMine)
		api.POST("/user-quests", u.create)
		api.GET("/user-quests/:questId", u.get)
		api.PUT("/user-quests/:questId/status", u.setStatus)
		api.DELETE("/user-quests/:questId", u.remove)

		api.GET("/placeholders", u.listPlaceholders)
		api.POST("/placeholders/:category/dismiss", u.dismissPlaceholder)
		api.POST("/placeholders/:category/restore", u.restorePlaceholder)
	}
}

// CreateUserQuest starts tracking a quest for a user. One record per
// (user, quest) pair; a second creation is rejected. If the quest belongs to
// a core category and the user still has an active placeholder for it, the
// placeholder is dismissed as a best-effort side effect.
func CreateUserQuest(db *gorm.DB, userID int, questID uint) (*models.UserQuest, error) {
	var quest models.Quest
	if err := db.First(&quest, questID).Error; err != nil {
		return nil, errors.New("Quest not found")
	}

	var existing models.UserQuest
	if err := db.Where("user_id = ? AND quest_id = ?", userID, questID).First(&existing).Error; err == nil {
		return nil, ErrQuestExists
	}

	userQuest := models.UserQuest{
		UserID:  userID,
		QuestID: questID,
		Status:  models.StatusNotStarted,
	}
	if err := db.Create(&userQuest).Error; err != nil {
		return nil, err
	}

	if models.IsCoreCategory(quest.Category) {
		if err := DismissPlaceholder(db, userID, quest.Category); err != nil {
			// Best-effort cleanup, not an invariant.
			log.Printf("placeholder dismissal for user %d category %s: %v", userID, quest.Category, err)
		}
	}

	return &userQuest, nil
}

// SetStatus runs the status transition rules:
//   - notStarted clears completedAt
//   - inProgress stamps startedAt with the current time (restarting the
//     clock on re-entry) and clears completedAt when leaving complete
//   - complete stamps completedAt
//
// Setting the current status again is a no-op.
func SetStatus(db *gorm.DB, userID int, questID uint, status string) (*models.UserQuest, error) {
	switch status {
	case models.StatusNotStarted, models.StatusInProgress, models.StatusComplete:
	default:
		return nil, ErrInvalidStatus
	}

	var userQuest models.UserQuest
	if err := db.Where("user_id = ? AND quest_id = ?", userID, questID).First(&userQuest).Error; err != nil {
		return nil, ErrUserQuestNotFound
	}

	if userQuest.Status == status {
		return &userQuest, nil
	}

	now := time.Now()
	switch status {
	case models.StatusNotStarted:
		userQuest.CompletedAt = nil
	case models.StatusInProgress:
		userQuest.StartedAt = &now
		if userQuest.Status == models.StatusComplete {
			userQuest.CompletedAt = nil
		}
	case models.StatusComplete:
		userQuest.CompletedAt = &now
	}
	userQuest.Status = status
	userQuest.UpdatedAt = now

	if err := db.Save(&userQuest).Error; err != nil {
		return nil, err
	}
	return &userQuest, nil
}

// DismissPlaceholder marks a placeholder dismissed. The row must exist;
// dismissing an already-dismissed placeholder changes nothing.
func DismissPlaceholder(db *gorm.DB, userID int, category string) error {
	var placeholder models.UserQuestPlaceholder
	if err := db.Where("user_id = ? AND category = ?", userID, category).First(&placeholder).Error; err != nil {
		return ErrPlaceholderNotFound
	}

	if placeholder.DismissedAt != nil {
		return nil
	}

	now := time.Now()
	placeholder.DismissedAt = &now
	return db.Save(&placeholder).Error
}

// RestorePlaceholder clears the dismissed marker.
func RestorePlaceholder(db *gorm.DB, userID int, category string) error {
	var placeholder models.UserQuestPlaceholder
	if err := db.Where("user_id = ? AND category = ?", userID, category).First(&placeholder).Error; err != nil {
		return ErrPlaceholderNotFound
	}

	placeholder.DismissedAt = nil
	return db.Save(&placeholder).Error
}

type userQuestDetail struct {
	models.UserQuest
	Quest models.Quest `json:"quest"`
}

func (u *UserQuestsModule) listMine(c *gin.Context) {
	userID := c.GetInt("user_id")

	var userQuests []models.UserQuest
	if err := u.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&userQuests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading quests"})
		return
	}

	details := []userQuestDetail{}
	for _, userQuest := range userQuests {
		var quest models.Quest
		if err := u.db.First(&quest, userQuest.QuestID).Error; err != nil {
			continue
		}
		details = append(details, userQuestDetail{UserQuest: userQuest, Quest: quest})
	}

	c.JSON(http.StatusOK, details)
}

func (u *UserQuestsModule) create(c *gin.Context) {
	var request struct {
		QuestID uint `json:"quest_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userQuest, err := CreateUserQuest(u.db, c.GetInt("user_id"), request.QuestID)
	if err != nil {
		status := http.StatusInternalServerError
		switch err {
		case ErrQuestExists:
			status = http.StatusConflict
		default:
			if err.Error() == "Quest not found" {
				status = http.StatusNotFound
			}
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, userQuest)
}

func (u *UserQuestsModule) get(c *gin.Context) {
	var userQuest models.UserQuest
	err := u.db.Where("user_id = ? AND quest_id = ?", c.GetInt("user_id"), c.Param("questId")).First(&userQuest).Error
	if err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, userQuest)
}

func (u *UserQuestsModule) setStatus(c *gin.Context) {
	var request struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	questID, err := strconv.Atoi(c.Param("questId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quest id"})
		return
	}

	updated, err := SetStatus(u.db, c.GetInt("user_id"), uint(questID), request.Status)
	if err != nil {
		status := http.StatusInternalServerError
		switch err {
		case ErrInvalidStatus:
			status = http.StatusBadRequest
		case ErrUserQuestNotFound:
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (u *UserQuestsModule) remove(c *gin.Context) {
	result := u.db.Where("user_id = ? AND quest_id = ?", c.GetInt("user_id"), c.Param("questId")).Delete(&models.UserQuest{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting quest"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrUserQuestNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quest removed"})
}

func (u *UserQuestsModule) listPlaceholders(c *gin.Context) {
	var placeholders []models.UserQuestPlaceholder
	err := u.db.Where("user_id = ? AND dismissed_at IS NULL", c.GetInt("user_id")).
		Order("created_at ASC").
		Find(&placeholders).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading placeholders"})
		return
	}
	if placeholders == nil {
		placeholders = []models.UserQuestPlaceholder{}
	}

	c.JSON(http.StatusOK, placeholders)
}

func (u *UserQuestsModule) dismissPlaceholder(c *gin.Context) {
	if err := DismissPlaceholder(u.db, c.GetInt("user_id"), c.Param("category")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Placeholder dismissed"})
}

func (u *UserQuestsModule) restorePlaceholder(c *gin.Context) {
	if err := RestorePlaceholder(u.db, c.GetInt("user_id"), c.Param("category")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Placeholder restored"})
}
