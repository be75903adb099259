package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/starkeep/starkeep/internal/identity"
	"go.uber.org/zap"
)

// AuthHandler exchanges the static admin secret for a short-lived operator
// token. Operator tokens guard privileged endpoints such as chain validation.
type AuthHandler struct {
	tokens      *identity.AdminTokenIssuer
	adminSecret string
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler. An empty adminSecret disables token
// issuance entirely.
func NewAuthHandler(tokens *identity.AdminTokenIssuer, adminSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, adminSecret: adminSecret, logger: logger}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/token", h.IssueToken)
}

// IssueToken handles POST /auth/token.
//
// Request body: {"secret": "..."}
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req struct {
		Secret string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.adminSecret == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access is not configured"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.adminSecret)) != 1 {
		h.logger.Warn("admin token request with wrong secret", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin secret"})
		return
	}

	token, err := h.tokens.Issue()
	if err != nil {
		h.logger.Error("issue admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// RequireAdmin returns a middleware that rejects requests lacking a valid
// operator bearer token.
func RequireAdmin(tokens *identity.AdminTokenIssuer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		if _, err := tokens.Verify(raw); err != nil {
			logger.Info("rejected admin token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			return
		}
		c.Next()
	}
}
