package backup

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handlers exposes backup export and import over HTTP.
type Handlers struct {
	service        *Service
	defaultProfile string
}

// NewHandlers creates backup handlers.
func NewHandlers(service *Service, defaultProfile string) *Handlers {
	return &Handlers{service: service, defaultProfile: defaultProfile}
}

// RegisterRoutes registers backup endpoints.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/export", h.Export)
	g.POST("/import", h.Import)
}

func (h *Handlers) profileID(c echo.Context) string {
	if p := c.QueryParam("profileId"); p != "" {
		return p
	}
	return h.defaultProfile
}

// Export streams the library as a JSON attachment.
func (h *Handlers) Export(c echo.Context) error {
	doc, err := h.service.Export(c.Request().Context(), h.profileID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	filename := fmt.Sprintf("watchlog-backup-%s.json", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c.Response().WriteHeader(http.StatusOK)
	return h.service.WriteTo(c.Response(), doc)
}

// Import merges a backup document into the library. Existing shows are
// skipped; the import is additive.
func (h *Handlers) Import(c echo.Context) error {
	doc, err := Read(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	summary, err := h.service.Import(c.Request().Context(), doc, h.profileID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, summary)
}
