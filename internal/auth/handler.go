package auth

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/best-shot/backend/pkg/response"
)

// LoginRequest is the body for POST /admin/login.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the login response.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler handles the admin login endpoint.
type Handler struct {
	passwordHash string
	jwt          *JWTService
	logger       *zap.Logger
}

// NewHandler creates an auth handler for the configured admin password hash.
func NewHandler(passwordHash string, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{passwordHash: passwordHash, jwt: jwt, logger: logger}
}

// Login handles POST /admin/login.
func (h *Handler) Login(c *gin.Context) {
	if h.passwordHash == "" {
		response.NotFound(c, "admin login is not enabled")
		return
	}
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !CheckPassword(req.Password, h.passwordHash) {
		h.logger.Warn("admin login failed", zap.String("client_ip", c.ClientIP()))
		response.Unauthorized(c, "invalid password")
		return
	}
	token, expires, err := h.jwt.Generate()
	if err != nil {
		h.logger.Error("sign admin token", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, ExpiresAt: expires})
}
