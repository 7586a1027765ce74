package calendar

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers exposes the calendar feed over HTTP.
type Handlers struct {
	service        *Service
	defaultProfile string
}

// NewHandlers creates calendar handlers.
func NewHandlers(service *Service, defaultProfile string) *Handlers {
	return &Handlers{service: service, defaultProfile: defaultProfile}
}

// RegisterRoutes registers calendar endpoints.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetUpcoming)
}

// GetUpcoming returns episodes airing within the requested window.
func (h *Handlers) GetUpcoming(c echo.Context) error {
	profileID := c.QueryParam("profileId")
	if profileID == "" {
		profileID = h.defaultProfile
	}

	days := 30
	if d := c.QueryParam("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid days"})
		}
		days = parsed
	}

	entries, err := h.service.Upcoming(c.Request().Context(), profileID, days)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, entries)
}
