package tags

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/auth"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
)

// Handler handles tag-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	URLCount int    `json:"url_count,omitempty"`
}

// SetTagsRequest represents the request to set tags on a URL
type SetTagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

// List returns the tags used across the caller's URLs with usage counts
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	type tagWithCount struct {
		ID       uint
		Name     string
		URLCount int
	}

	var results []tagWithCount
	err := h.db.Table("tags").
		Select("tags.id, tags.name, COUNT(DISTINCT urls.id) as url_count").
		Joins("INNER JOIN url_tags ON tags.id = url_tags.tag_id").
		Joins("INNER JOIN urls ON url_tags.url_id = urls.id AND urls.owner_user_id = ? AND urls.deleted_at IS NULL", userID).
		Where("tags.deleted_at IS NULL").
		Group("tags.id").
		Order("url_count DESC").
		Find(&results).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	tags := make([]TagResponse, len(results))
	for i, r := range results {
		tags[i] = TagResponse{ID: r.ID, Name: r.Name, URLCount: r.URLCount}
	}
	c.JSON(http.StatusOK, tags)
}

// SetURLTags replaces the tag set of a URL. Tags are created on first use
// and shared across URLs.
func (h *Handler) SetURLTags(c *gin.Context) {
	urlID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL ID"})
		return
	}

	var record models.URL
	if err := h.db.First(&record, urlID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
		return
	}

	if !auth.IsAdmin(c) {
		userID, _ := auth.GetUserID(c)
		if record.OwnerUserID == nil || *record.OwnerUserID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
			return
		}
	}

	var req SetTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags := make([]models.Tag, 0, len(req.Tags))
	seen := make(map[string]bool)
	for _, name := range req.Tags {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var tag models.Tag
		if err := h.db.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tag"})
			return
		}
		tags = append(tags, tag)
	}

	if err := h.db.Model(&record).Association("Tags").Replace(tags); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set tags"})
		return
	}

	responses := make([]TagResponse, len(tags))
	for i, t := range tags {
		responses[i] = TagResponse{ID: t.ID, Name: t.Name}
	}
	c.JSON(http.StatusOK, responses)
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authed := rg.Group("", auth.AuthMiddleware())
	authed.GET("/tags", h.List)
	authed.PUT("/urls/:id/tags", h.SetURLTags)
}
