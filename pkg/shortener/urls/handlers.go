package urls

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/auth"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/guests"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/shortcode"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/visits"
)

// URLStore is the storage surface the handlers need. Satisfied by both
// Store and CachedStore.
type URLStore interface {
	Create(url *models.URL) error
	FindByID(id uint) (*models.URL, error)
	ListByOwner(ownerID uint, f Filters) ([]models.URL, error)
	ListAll(f Filters) ([]models.URL, error)
	Update(url *models.URL) error
	Delete(id uint) error
}

// Options carries the creation-workflow policy knobs
type Options struct {
	BaseURL       string
	CreateRetries int
	GuestLimit    int64
	GuestWindow   time.Duration
}

// Handler handles URL management requests
type Handler struct {
	store  URLStore
	alloc  *shortcode.Allocator
	quota  *guests.QuotaGuard
	visits *visits.Recorder
	opts   Options
	log    *logrus.Entry
}

// NewHandler creates a new URL handler
func NewHandler(store URLStore, alloc *shortcode.Allocator, quota *guests.QuotaGuard, rec *visits.Recorder, opts Options, logger *logrus.Logger) *Handler {
	if opts.CreateRetries <= 0 {
		opts.CreateRetries = 5
	}
	if opts.GuestLimit <= 0 {
		opts.GuestLimit = 10
	}
	if opts.GuestWindow <= 0 {
		opts.GuestWindow = 24 * time.Hour
	}
	return &Handler{
		store:  store,
		alloc:  alloc,
		quota:  quota,
		visits: rec,
		opts:   opts,
		log:    logger.WithField("module", "urls/handlers"),
	}
}

// CreateURLRequest represents the request to shorten a URL
type CreateURLRequest struct {
	URL        string `json:"url" binding:"required"`
	GuestEmail string `json:"guest_email" binding:"omitempty,email"`
}

// UpdateURLRequest represents the request to update a URL
type UpdateURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// URLResponse represents a URL in API responses
type URLResponse struct {
	ID             uint       `json:"id"`
	ShortCode      string     `json:"short_code"`
	ShortURL       string     `json:"short_url"`
	LongName       string     `json:"long_name"`
	IsBlocked      bool       `json:"is_blocked"`
	BlockExpiresAt *time.Time `json:"block_expires_at,omitempty"`
	CreatedAt      string     `json:"created_at"`
	Tags           []string   `json:"tags,omitempty"`
}

func (h *Handler) urlToResponse(u models.URL) URLResponse {
	tags := make([]string, len(u.Tags))
	for i, t := range u.Tags {
		tags[i] = t.Name
	}
	return URLResponse{
		ID:             u.ID,
		ShortCode:      u.ShortCode,
		ShortURL:       strings.TrimRight(h.opts.BaseURL, "/") + "/" + u.ShortCode,
		LongName:       u.LongName,
		IsBlocked:      u.IsBlocked,
		BlockExpiresAt: u.BlockExpiresAt,
		CreatedAt:      u.CreatedAt.Format(time.RFC3339),
		Tags:           tags,
	}
}

// validateLongName rejects structurally unusable target URLs
func validateLongName(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{"URL cannot be empty"}
	}
	if len(raw) > 2048 {
		return &ValidationError{"URL is too long (max 2048 characters)"}
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{"Invalid URL format"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{"URL must start with http:// or https://"}
	}
	if parsed.Host == "" {
		return &ValidationError{"URL must contain a valid host"}
	}
	return nil
}

// Create shortens a URL. Authenticated users own the record; otherwise a
// guest email is required and gated by the rolling creation quota. The
// store's unique index is the real uniqueness arbiter, so creation retries
// with a fresh code when a concurrent allocator wins the race.
func (h *Handler) Create(c *gin.Context) {
	var req CreateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validateLongName(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record := models.URL{LongName: req.URL}

	userID, authenticated := auth.GetUserID(c)
	if authenticated {
		record.OwnerUserID = &userID
	} else {
		if req.GuestEmail == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A guest email is required when not logged in"})
			return
		}

		windowStart := time.Now().Add(-h.opts.GuestWindow)
		used, err := h.quota.CountSince(req.GuestEmail, windowStart)
		if err != nil {
			h.log.WithError(err).Error("guest quota check failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create short URL"})
			return
		}
		if used >= h.opts.GuestLimit {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Guest creation limit reached, try again later"})
			return
		}

		guest, err := h.quota.CreateIdentity(req.GuestEmail)
		if err != nil {
			h.log.WithError(err).Error("guest identity creation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create short URL"})
			return
		}
		record.GuestID = &guest.ID
	}

	created := false
	for attempt := 0; attempt < h.opts.CreateRetries; attempt++ {
		code, err := h.alloc.Allocate()
		if err != nil {
			if errors.Is(err, shortcode.ErrAllocationExhausted) {
				h.log.Error("short code allocation exhausted")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to allocate a short code"})
				return
			}
			h.log.WithError(err).Error("short code allocation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create short URL"})
			return
		}

		record.ShortCode = code
		err = h.store.Create(&record)
		if err == nil {
			created = true
			break
		}
		if errors.Is(err, ErrDuplicateShortCode) {
			// Lost the allocation race, try a fresh code
			continue
		}
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		h.log.WithError(err).Error("url creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create short URL"})
		return
	}

	if !created {
		h.log.Error("url creation exhausted duplicate-code retries")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to allocate a short code"})
		return
	}

	c.JSON(http.StatusCreated, h.urlToResponse(record))
}

func parseFilters(c *gin.Context) Filters {
	f := Filters{Tag: c.Query("tag"), Limit: 50}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			f.Limit = parsed
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			f.Offset = parsed
		}
	}
	return f
}

// List returns the authenticated user's URLs, newest first
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	results, err := h.store.ListByOwner(userID, parseFilters(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch URLs"})
		return
	}

	responses := make([]URLResponse, len(results))
	for i, u := range results {
		responses[i] = h.urlToResponse(u)
	}
	c.JSON(http.StatusOK, responses)
}

// ListPublic returns all URLs, newest first. Backs the public listing page.
func (h *Handler) ListPublic(c *gin.Context) {
	results, err := h.store.ListAll(parseFilters(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch URLs"})
		return
	}

	responses := make([]URLResponse, len(results))
	for i, u := range results {
		responses[i] = h.urlToResponse(u)
	}
	c.JSON(http.StatusOK, responses)
}

// findOwned loads a URL by path id and checks the caller may manage it
func (h *Handler) findOwned(c *gin.Context) (*models.URL, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL ID"})
		return nil, false
	}

	record, err := h.store.FindByID(uint(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch URL"})
		}
		return nil, false
	}

	if !auth.IsAdmin(c) {
		userID, _ := auth.GetUserID(c)
		if record.OwnerUserID == nil || *record.OwnerUserID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
			return nil, false
		}
	}
	return record, true
}

// Get returns a single URL by id
func (h *Handler) Get(c *gin.Context) {
	record, ok := h.findOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.urlToResponse(*record))
}

// Update changes the target URL. The short code and creation time are
// immutable and cannot be changed through this endpoint.
func (h *Handler) Update(c *gin.Context) {
	record, ok := h.findOwned(c)
	if !ok {
		return
	}

	var req UpdateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateLongName(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record.LongName = req.URL
	if err := h.store.Update(record); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update URL"})
		return
	}

	c.JSON(http.StatusOK, h.urlToResponse(*record))
}

// Delete removes a URL. Visit events are deleted first so no event is
// left referencing a missing parent.
func (h *Handler) Delete(c *gin.Context) {
	record, ok := h.findOwned(c)
	if !ok {
		return
	}

	if _, err := h.visits.DeleteAllForURL(record.ID); err != nil {
		h.log.WithError(err).Errorf("failed to delete visits for url %d", record.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete URL"})
		return
	}

	if err := h.store.Delete(record.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "URL deleted"})
}

// RegisterRoutes registers URL management routes. Creation accepts both
// authenticated and guest callers; management requires authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/urls", auth.OptionalAuthMiddleware(), h.Create)
	rg.GET("/public/urls", h.ListPublic)

	authed := rg.Group("", auth.AuthMiddleware())
	authed.GET("/urls", h.List)
	authed.GET("/urls/:id", h.Get)
	authed.PUT("/urls/:id", h.Update)
	authed.DELETE("/urls/:id", h.Delete)
}
