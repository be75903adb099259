package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/starkeep/starkeep/internal/challenge"
	"github.com/starkeep/starkeep/internal/registry/service"
	"go.uber.org/zap"
)

// RegistrationHandler handles the challenge/submit ownership-proof flow.
type RegistrationHandler struct {
	svc    *service.RegistrationService
	logger *zap.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, logger: logger}
}

// Register mounts the registration routes on the given router group.
func (h *RegistrationHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/challenge", h.RequestChallenge)
	rg.POST("/stars", h.SubmitStar)
}

// RequestChallenge handles POST /challenge.
//
// Request body: {"address": "0x..."}
//
// Response: the token the wallet must sign and submit within the window.
func (h *RegistrationHandler) RequestChallenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.svc.RequestChallenge(c.Request.Context(), req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	RecordChallengeIssued()
	c.JSON(http.StatusCreated, gin.H{
		"address":            req.Address,
		"challenge":          token,
		"expires_in_seconds": int(challenge.Window / time.Second),
		"instructions":       "Sign the challenge with your wallet key, then POST /stars with the signature.",
	})
}

// SubmitStar handles POST /stars.
//
// Request body: {"address": "0x...", "challenge": "...", "signature": "...", "star": "Polaris"}
func (h *RegistrationHandler) SubmitStar(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Challenge string `json:"challenge" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Star      string `json:"star" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	block, err := h.svc.Submit(c.Request.Context(), req.Address, req.Challenge, req.Signature, req.Star)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMalformedToken):
			RecordSubmission("malformed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrChallengeExpired):
			RecordSubmission("expired")
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidSignature):
			RecordSubmission("invalid_signature")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrTokenReplayed):
			RecordSubmission("replayed")
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			RecordSubmission("error")
			h.logger.Error("submit star", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "submission failed"})
		}
		return
	}

	RecordSubmission("accepted")
	RecordBlockAppended()
	c.JSON(http.StatusCreated, block)
}
