package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/starkeep/starkeep/internal/chain"
	"go.uber.org/zap"
)

// ChainHandler exposes read-only HTTP endpoints for the star chain.
type ChainHandler struct {
	ledger chain.Ledger
	logger *zap.Logger
}

// NewChainHandler creates a new ChainHandler.
func NewChainHandler(ledger chain.Ledger, logger *zap.Logger) *ChainHandler {
	return &ChainHandler{ledger: ledger, logger: logger}
}

// Register mounts the chain routes on the given router group. adminGuard, if
// non-nil, protects the validate endpoint.
func (h *ChainHandler) Register(rg *gin.RouterGroup, adminGuard gin.HandlerFunc) {
	c := rg.Group("/chain")
	{
		c.GET("", h.Overview)
		if adminGuard != nil {
			c.GET("/validate", adminGuard, h.Validate)
		} else {
			c.GET("/validate", h.Validate)
		}
		c.GET("/blocks/height/:height", h.ByHeight)
		c.GET("/blocks/hash/:hash", h.ByHash)
	}
	rg.GET("/owners/:address/stars", h.StarsByOwner)
}

// Overview handles GET /chain — returns the chain height and tip hash.
func (h *ChainHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	height, err := h.ledger.Height(ctx)
	if err != nil {
		h.logger.Error("chain height", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query chain"})
		return
	}

	tip, err := h.ledger.Tip(ctx)
	if err != nil {
		h.logger.Error("chain tip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query chain tip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"height":   height,
		"tip_hash": tip.Hash,
	})
}

// Validate handles GET /chain/validate — walks the full chain and reports
// every corrupted block. Corruption is data, not an error: the response is
// always 200 with a verdict.
func (h *ChainHandler) Validate(c *gin.Context) {
	bad, err := h.ledger.Validate(c.Request.Context())
	if err != nil {
		h.logger.Error("chain validate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate chain"})
		return
	}

	if len(bad) > 0 {
		h.logger.Warn("chain integrity check failed", zap.Int("bad_blocks", len(bad)))
		c.JSON(http.StatusOK, gin.H{
			"valid":      false,
			"bad_blocks": bad,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "bad_blocks": []*chain.Block{}})
}

// ByHeight handles GET /chain/blocks/height/:height.
func (h *ChainHandler) ByHeight(c *gin.Context) {
	height, err := strconv.Atoi(c.Param("height"))
	if err != nil || height < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "height must be a non-negative integer"})
		return
	}

	b, ok, err := h.ledger.ByHeight(c.Request.Context(), height)
	if err != nil {
		h.logger.Error("block by height", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query block"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}

	c.JSON(http.StatusOK, b)
}

// ByHash handles GET /chain/blocks/hash/:hash.
func (h *ChainHandler) ByHash(c *gin.Context) {
	b, ok, err := h.ledger.ByHash(c.Request.Context(), c.Param("hash"))
	if err != nil {
		h.logger.Error("block by hash", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query block"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}

	c.JSON(http.StatusOK, b)
}

// StarsByOwner handles GET /owners/:address/stars.
func (h *ChainHandler) StarsByOwner(c *gin.Context) {
	address := c.Param("address")

	stars, err := h.ledger.StarsByOwner(c.Request.Context(), address)
	if err != nil {
		h.logger.Error("stars by owner", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query stars"})
		return
	}
	if stars == nil {
		stars = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"owner": address,
		"stars": stars,
	})
}
