package users

import (
	"net/http"
	"net/mail"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"namesake/auth"
	"namesake/models"
)

type UsersModule struct {
	db *gorm.DB
}

func NewUsersModule(db *gorm.DB) *UsersModule {
	return &UsersModule{db: db}
}

func (u *UsersModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(auth.RequireAuth)
	{
		api.GET("/users/me", u.me)
		api.PUT("/users/me/name", u.setName)
		api.PUT("/users/me/email", u.setEmail)
		api.PUT("/users/me/is-minor", u.setIsMinor)
		api.DELETE("/users/me", u.deleteAccount)

		api.GET("/user-settings", u.getSettings)
		api.PUT("/user-settings/theme", u.setTheme)
		api.PUT("/user-settings/color", u.setColor)

		api.GET("/user-data", u.getUserData)
		api.PUT("/user-data", u.setUserData)
	}

	adminAPI := router.Group("/api")
	adminAPI.Use(auth.RequireAuth, auth.RequireRole(u.db, models.RoleAdmin))
	{
		adminAPI.GET("/users", u.listUsers)
		adminAPI.PUT("/users/:id/role", u.setRole)
	}
}

func (u *UsersModule) me(c *gin.Context) {
	var user models.User
	if err := u.db.First(&user, c.GetInt("user_id")).Error; err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (u *UsersModule) setName(c *gin.Context) {
	var request struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User
	if err := u.db.First(&user, c.GetInt("user_id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.Name = request.Name
	if err := u.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (u *UsersModule) setEmail(c *gin.Context) {
	var request struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := mail.ParseAddress(request.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}

	var existing models.User
	if err := u.db.Where("email = ? AND id != ?", request.Email, c.GetInt("user_id")).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "This email is already registered"})
		return
	}

	var user models.User
	if err := u.db.First(&user, c.GetInt("user_id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.Email = request.Email
	if err := u.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (u *UsersModule) setIsMinor(c *gin.Context) {
	var request struct {
		IsMinor bool `json:"is_minor"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User
	if err := u.db.First(&user, c.GetInt("user_id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.IsMinor = request.IsMinor
	if err := u.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// deleteAccount removes the user and everything keyed to them.
func (u *UsersModule) deleteAccount(c *gin.Context) {
	userID := c.GetInt("user_id")

	var user models.User
	if err := u.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	u.db.Where("user_id = ?", userID).Delete(&models.UserQuest{})
	u.db.Where("user_id = ?", userID).Delete(&models.UserQuestPlaceholder{})
	u.db.Where("user_id = ?", userID).Delete(&models.UserSettings{})
	u.db.Where("user_id = ?", userID).Delete(&models.UserData{})

	if err := u.db.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

func (u *UsersModule) listUsers(c *gin.Context) {
	var users []models.User
	if err := u.db.Order("created_at ASC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

func (u *UsersModule) setRole(c *gin.Context) {
	var request struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	switch request.Role {
	case models.RoleUser, models.RoleEditor, models.RoleAdmin:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	var user models.User
	if err := u.db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.Role = request.Role
	if err := u.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Settings are created at registration; a missing row here is a caller bug
// surfaced as an error, not silently repaired.
func (u *UsersModule) getSettings(c *gin.Context) {
	var settings models.UserSettings
	if err := u.db.Where("user_id = ?", c.GetInt("user_id")).First(&settings).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User settings not found"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (u *UsersModule) setTheme(c *gin.Context) {
	var request struct {
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	switch request.Theme {
	case "system", "light", "dark":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid theme"})
		return
	}

	var settings models.UserSettings
	if err := u.db.Where("user_id = ?", c.GetInt("user_id")).First(&settings).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User settings not found"})
		return
	}

	settings.Theme = request.Theme
	if err := u.db.Save(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating settings"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (u *UsersModule) setColor(c *gin.Context) {
	var request struct {
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Color == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var settings models.UserSettings
	if err := u.db.Where("user_id = ?", c.GetInt("user_id")).First(&settings).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User settings not found"})
		return
	}

	settings.Color = request.Color
	if err := u.db.Save(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating settings"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (u *UsersModule) getUserData(c *gin.Context) {
	var data models.UserData
	if err := u.db.Where("user_id = ?", c.GetInt("user_id")).First(&data).Error; err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, data)
}

// setUserData upserts the user's saved personal data as a whole record.
func (u *UsersModule) setUserData(c *gin.Context) {
	var request models.UserData
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID := c.GetInt("user_id")

	var data models.UserData
	if err := u.db.Where("user_id = ?", userID).First(&data).Error; err != nil {
		request.ID = 0
		request.UserID = userID
		if err := u.db.Create(&request).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving data"})
			return
		}
		c.JSON(http.StatusOK, request)
		return
	}

	request.ID = data.ID
	request.UserID = userID
	if err := u.db.Save(&request).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving data"})
		return
	}

	c.JSON(http.StatusOK, request)
}
