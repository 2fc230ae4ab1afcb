package visits

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/auth"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
)

// Handler handles visit listing requests
type Handler struct {
	db  *gorm.DB
	rec *Recorder
}

// NewHandler creates a new visits handler
func NewHandler(db *gorm.DB, rec *Recorder) *Handler {
	return &Handler{db: db, rec: rec}
}

// VisitResponse represents a visit in API responses
type VisitResponse struct {
	ID        uint   `json:"id"`
	URLID     uint   `json:"url_id"`
	VisitedAt string `json:"visited_at"`
}

// VisitListResponse is a page of visits
type VisitListResponse struct {
	Visits  []VisitResponse `json:"visits"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// ListForURL returns a page of visits for one of the caller's URLs,
// newest first
func (h *Handler) ListForURL(c *gin.Context) {
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

	page := 1
	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	perPage := DefaultPerPage
	if pp := c.Query("per_page"); pp != "" {
		if parsed, err := strconv.Atoi(pp); err == nil && parsed > 0 {
			perPage = parsed
		}
	}

	visits, total, err := h.rec.ListForURL(uint(urlID), page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch visits"})
		return
	}

	responses := make([]VisitResponse, len(visits))
	for i, v := range visits {
		responses[i] = VisitResponse{
			ID:        v.ID,
			URLID:     v.URLID,
			VisitedAt: v.VisitedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, VisitListResponse{
		Visits:  responses,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// RegisterRoutes registers visit routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/urls/:id/visits", auth.AuthMiddleware(), h.ListForURL)
}
