package syncer

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers exposes the sync trigger over HTTP.
type Handlers struct {
	service        *Service
	defaultProfile string
}

// NewHandlers creates sync handlers.
func NewHandlers(service *Service, defaultProfile string) *Handlers {
	return &Handlers{service: service, defaultProfile: defaultProfile}
}

// RegisterRoutes registers sync endpoints.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Run)
}

// Run executes a full incremental sync pass and returns the summary.
func (h *Handlers) Run(c echo.Context) error {
	profileID := c.QueryParam("profileId")
	if profileID == "" {
		profileID = h.defaultProfile
	}

	summary, err := h.service.Synchronize(c.Request().Context(), profileID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, summary)
}
