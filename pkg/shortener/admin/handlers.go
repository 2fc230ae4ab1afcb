package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/urls"
)

// URLAdminStore is the store surface the admin handlers need. Satisfied by
// both urls.Store and urls.CachedStore.
type URLAdminStore interface {
	FindByID(id uint) (*models.URL, error)
	Block(id uint, expiresAt *time.Time) error
	ClearBlock(id uint) error
	SweepExpiredBlocks(now time.Time) ([]string, error)
}

// Handler handles admin requests
type Handler struct {
	db    *gorm.DB
	store URLAdminStore
	log   *logrus.Entry
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB, store URLAdminStore, logger *logrus.Logger) *Handler {
	return &Handler{
		db:    db,
		store: store,
		log:   logger.WithField("module", "admin/handlers"),
	}
}

// BlockRequest represents the request to block a URL. An absent expiry
// creates a block that clears on first access, matching the lazy
// auto-unblock rule.
type BlockRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers   int64 `json:"total_users"`
	TotalURLs    int64 `json:"total_urls"`
	TotalGuests  int64 `json:"total_guests"`
	TotalTags    int64 `json:"total_tags"`
	TotalVisits  int64 `json:"total_visits"`
	BlockedURLs  int64 `json:"blocked_urls"`
	GuestOwned   int64 `json:"guest_owned_urls"`
	UserOwned    int64 `json:"user_owned_urls"`
}

func (h *Handler) pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL ID"})
		return 0, false
	}
	return uint(id), true
}

// Block marks a URL blocked with an optional expiry
func (h *Handler) Block(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	// Body is optional: blocking without an expiry is allowed
	var req BlockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.store.Block(id, req.ExpiresAt); err != nil {
		if errors.Is(err, urls.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to block URL"})
		return
	}

	h.log.WithField("url_id", id).Info("url blocked")
	c.JSON(http.StatusOK, gin.H{"message": "URL blocked"})
}

// Unblock clears a URL's block state
func (h *Handler) Unblock(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.store.ClearBlock(id); err != nil {
		if errors.Is(err, urls.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unblock URL"})
		return
	}

	h.log.WithField("url_id", id).Info("url unblocked")
	c.JSON(http.StatusOK, gin.H{"message": "URL unblocked"})
}

// SweepBlocks clears every expired block immediately. The same sweep runs
// periodically in the background; this endpoint triggers it on demand.
func (h *Handler) SweepBlocks(c *gin.Context) {
	codes, err := h.store.SweepExpiredBlocks(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sweep blocks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": len(codes)})
}

// Stats returns system-wide counters
func (h *Handler) Stats(c *gin.Context) {
	var stats StatsResponse
	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.URL{}).Count(&stats.TotalURLs)
	h.db.Model(&models.Guest{}).Count(&stats.TotalGuests)
	h.db.Model(&models.Tag{}).Count(&stats.TotalTags)
	h.db.Model(&models.Visit{}).Count(&stats.TotalVisits)
	h.db.Model(&models.URL{}).Where("is_blocked = ?", true).Count(&stats.BlockedURLs)
	h.db.Model(&models.URL{}).Where("guest_id IS NOT NULL").Count(&stats.GuestOwned)
	h.db.Model(&models.URL{}).Where("owner_user_id IS NOT NULL").Count(&stats.UserOwned)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes. Caller wraps the group with auth
// and admin-role middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/urls/:id/block", h.Block)
	rg.POST("/urls/:id/unblock", h.Unblock)
	rg.POST("/sweep-blocks", h.SweepBlocks)
	rg.GET("/stats", h.Stats)
}
