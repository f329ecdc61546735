package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/OldStager01/cloud-optimizer/internal/auth"
	"github.com/OldStager01/cloud-optimizer/pkg/config"
	"github.com/gin-gonic/gin"
)

// AuthHandler issues tokens for the single operator account declared
// in configuration. There is no user table.
type AuthHandler struct {
	authService *auth.Service
	user        config.AuthConfig
}

func NewAuthHandler(authService *auth.Service, user config.AuthConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		user:        user,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Username  string `json:"username"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if h.user.Username == "" || h.user.PasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication is not configured"})
		return
	}

	usernameMatch := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.user.Username)) == 1
	if !usernameMatch || !auth.CheckPassword(req.Password, h.user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken(h.user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: int(h.authService.Duration().Seconds()),
		Username:  h.user.Username,
	})
}
