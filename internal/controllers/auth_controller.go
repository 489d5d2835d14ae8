package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gmao/backend/internal/logger"
	"github.com/gmao/backend/internal/models"
)

const tokenTTL = 24 * time.Hour

// AuthController issues the bearer tokens checked by middleware.AuthMiddleware.
// User management itself lives in the administration service.
type AuthController struct {
	db     *gorm.DB
	secret []byte
}

func NewAuthController(db *gorm.DB, secret string) *AuthController {
	return &AuthController{db: db, secret: []byte(secret)}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Success   bool        `json:"success"`
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request data", "details": bindingError(err).Fields})
		return
	}

	var user models.User
	if err := ac.db.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithError(err, "auth_controller").Error("Failed to load user")
		}
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}

	token, expiresAt, err := ac.generateToken(&user)
	if err != nil {
		logger.WithError(err, "auth_controller").Error("Failed to sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate token"})
		return
	}

	logger.WithUser(user.ID).Info("User logged in")
	c.JSON(http.StatusOK, AuthResponse{
		Success:   true,
		Token:     token,
		User:      user,
		ExpiresAt: expiresAt,
	})
}

// RefreshToken re-issues a token for the already authenticated caller.
func (ac *AuthController) RefreshToken(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "User not authenticated"})
		return
	}

	var user models.User
	if err := ac.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "User not found"})
		return
	}

	token, expiresAt, err := ac.generateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     token,
		"expiresAt": expiresAt,
	})
}

func (ac *AuthController) generateToken(user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(tokenTTL)
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ac.secret)
	return tokenString, expiresAt, err
}
