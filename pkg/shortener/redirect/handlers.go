package redirect

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler handles redirect requests
type Handler struct {
	resolver *Resolver
}

// NewHandler creates a new redirect handler
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Redirect handles short URL redirects. Blocked links return 403 with no
// target URL in the payload; visit recording happens off this path.
func (h *Handler) Redirect(c *gin.Context) {
	code := c.Param("code")

	res, err := h.resolver.Resolve(code, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve link"})
		return
	}

	switch res.Outcome {
	case OutcomeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
	case OutcomeBlocked:
		c.JSON(http.StatusForbidden, gin.H{"error": "Link is blocked"})
	default:
		c.Redirect(http.StatusFound, res.LongName)
	}
}

// RegisterRoutes registers redirect routes on the root router
// This should be called AFTER all other routes to avoid conflicts
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// Match any path that could be a short code
	// This is registered last to avoid conflicts with /api, /health, etc.
	r.GET("/:code", h.Redirect)
}
