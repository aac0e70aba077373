package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"backend/models"
	"backend/storage"
	"backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// LoginHandler handles user authentication
// @Summary Login user
// @Description Authenticate user and return session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/login [post]
func LoginHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))

		// A valid bearer token short-circuits credential login. A failed
		// validation falls through so expired tokens can re-authenticate.
		if token != "" {
			parsedToken, err := utils.ValidateJWT(token)
			if err == nil && parsedToken.Valid {
				claims, ok := parsedToken.Claims.(jwt.MapClaims)
				if !ok {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims structure"})
					return
				}
				email, ok := claims["email"].(string)
				if !ok || email == "" {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "Email claim missing or invalid"})
					return
				}
				user, err := storage.GetUserByEmail(db, email)
				if err != nil {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
					return
				}
				if user.Suspended {
					c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
					return
				}
				c.JSON(http.StatusOK, gin.H{
					"message":      "User successfully logged in via token",
					"access_token": token,
					"user": gin.H{
						"id":    user.ID,
						"email": user.Email,
					},
				})
				return
			}
		}

		var loginData struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
			IP       string `json:"ip"`
		}
		if err := c.ShouldBindJSON(&loginData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		user, err := storage.GetUserByEmail(db, loginData.Email)
		if err != nil || !utils.ValidatePassword(user.Password, loginData.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if user.Suspended {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
			return
		}

		newToken, err := utils.GenerateJWT(user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		refreshToken, err := utils.GenerateRefreshToken(user.Email, newToken)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
			return
		}

		session := &models.Session{
			SessionID: newToken,
			UserID:    user.ID,
			HostName:  user.Email,
			IPAddress: loginData.IP,
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(15 * 24 * time.Hour),
		}
		if err := storage.SaveSession(db, session); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.LoginResponse{
			Token:        newToken,
			RefreshToken: refreshToken,
			SessionID:    newToken,
			User:         *user,
		})
	}
}

// LogoutHandler removes the caller's session.
// @Summary Logout user
// @Tags Authentication
// @Produce json
// @Success 200 {object} utils.Response
// @Failure 401 {object} models.ErrorResponse
// @Router /api/logout [post]
func LogoutHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if sessionID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing session"})
			return
		}
		session, _, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
			return
		}
		if err := storage.DeleteSession(db, session.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session", "details": err.Error()})
			return
		}
		utils.SuccessResponse(c, "Logged out", http.StatusOK)
	}
}
