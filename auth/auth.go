package auth

import (
	"log"
	"net/http"
	"net/mail"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"namesake/common"
	emailpkg "namesake/email"
	"namesake/models"
)

type AuthModule struct {
	db *gorm.DB
}

func NewAuthModule(db *gorm.DB) *AuthModule {
	return &AuthModule{db: db}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	router.POST("/auth/register", a.register)
	router.POST("/auth/login", a.login)
	router.POST("/auth/logout", a.logout)

	api := router.Group("/api")
	api.Use(RequireAuth)
	{
		api.GET("/early-access-codes", a.listMyCodes)
		api.POST("/early-access-codes/:id/redeem", a.redeemCodeHandler)
	}

	adminAPI := router.Group("/api")
	adminAPI.Use(RequireAuth, RequireRole(a.db, models.RoleAdmin))
	{
		adminAPI.POST("/early-access-codes", a.mintCode)
	}
}

// RequireAuth rejects requests without a logged-in session and exposes the
// user id to downstream handlers.
func RequireAuth(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get("user_id")

	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		c.Abort()
		return
	}

	c.Set("user_id", userID.(int))
	c.Next()
}

// RequireRole gates a route on the caller's role. Admins pass every check.
func RequireRole(db *gorm.DB, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		if err := db.First(&user, c.GetInt("user_id")).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			c.Abort()
			return
		}

		allowed := user.Role == models.RoleAdmin ||
			(role == models.RoleEditor && user.Role == models.RoleEditor) ||
			role == models.RoleUser
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Set("user", &user)
		c.Next()
	}
}

func (a *AuthModule) register(c *gin.Context) {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Code     string `json:"code"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := mail.ParseAddress(request.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}
	if len(request.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
		return
	}

	var existing models.User
	if err := a.db.Where("email = ?", request.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "This email is already registered"})
		return
	}

	passwordHash, err := hashPassword(request.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating account"})
		return
	}

	role := models.RoleUser
	if common.IsDevelopment() {
		role = models.RoleAdmin
	}

	user := models.User{
		Email:        request.Email,
		Name:         request.Name,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := a.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating account"})
		return
	}

	// Early-access gating only applies in production. The code is redeemed
	// after the account exists so claimedBy points at a real user.
	if !common.IsDevelopment() {
		if request.Code == "" {
			a.db.Delete(&user)
			c.JSON(http.StatusForbidden, gin.H{"error": "An early access code is required"})
			return
		}
		if err := RedeemCode(a.db, request.Code, user.ID); err != nil {
			a.db.Delete(&user)
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
	}

	// Settings must exist before anything reads them.
	if err := a.db.Create(&models.UserSettings{UserID: user.ID}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating account"})
		return
	}
	if err := a.db.Create(&models.UserData{UserID: user.ID}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating account"})
		return
	}

	// One placeholder per core category until a real quest is started.
	for _, category := range models.CoreCategories {
		placeholder := models.UserQuestPlaceholder{UserID: user.ID, Category: category}
		if err := a.db.Create(&placeholder).Error; err != nil {
			log.Printf("error creating placeholder %s for user %d: %v", category, user.ID, err)
		}
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.JSON(http.StatusOK, user)
}

func (a *AuthModule) login(c *gin.Context) {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", request.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email or password is incorrect"})
		return
	}

	if !checkPasswordHash(request.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email or password is incorrect"})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.JSON(http.StatusOK, user)
}

func (a *AuthModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// RedeemCode claims an early-access code for a user. A code can be claimed
// exactly once.
func RedeemCode(db *gorm.DB, codeID string, userID int) error {
	var code models.EarlyAccessCode
	if err := db.First(&code, "id = ?", codeID).Error; err != nil {
		return errCodeNotFound
	}

	if code.ClaimedAt != nil {
		return errCodeClaimed
	}

	now := time.Now()
	code.ClaimedBy = &userID
	code.ClaimedAt = &now
	return db.Save(&code).Error
}

var (
	errCodeNotFound = &codeError{"Code not found"}
	errCodeClaimed  = &codeError{"This code has already been redeemed."}
)

type codeError struct{ msg string }

func (e *codeError) Error() string { return e.msg }

func (a *AuthModule) redeemCodeHandler(c *gin.Context) {
	if err := RedeemCode(a.db, c.Param("id"), c.GetInt("user_id")); err != nil {
		status := http.StatusConflict
		if err == errCodeNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Code redeemed"})
}

func (a *AuthModule) mintCode(c *gin.Context) {
	var request struct {
		Email string `json:"email"` // optional invite recipient
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	code := models.EarlyAccessCode{
		ID:        uuid.NewString(),
		CreatedBy: c.GetInt("user_id"),
	}
	if err := a.db.Create(&code).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating code"})
		return
	}

	// Invites are best effort: a failed send leaves a usable code behind.
	if request.Email != "" {
		emailService := emailpkg.NewEmailService()
		if err := emailService.SendInviteEmail(request.Email, code.ID); err != nil {
			log.Printf("error sending invite to %s: %v", request.Email, err)
		}
	}

	c.JSON(http.StatusOK, code)
}

func (a *AuthModule) listMyCodes(c *gin.Context) {
	var codes []models.EarlyAccessCode
	if err := a.db.Where("created_by = ?", c.GetInt("user_id")).Order("created_at DESC").Find(&codes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading codes"})
		return
	}
	if codes == nil {
		codes = []models.EarlyAccessCode{}
	}
	c.JSON(http.StatusOK, codes)
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
