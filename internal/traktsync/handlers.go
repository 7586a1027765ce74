package traktsync

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/watchlog/watchlog/internal/backup"
)

// Handlers exposes the watch-state synchronizer over HTTP.
type Handlers struct {
	service        *Service
	defaultProfile string
}

// NewHandlers creates synchronizer handlers.
func NewHandlers(service *Service, defaultProfile string) *Handlers {
	return &Handlers{service: service, defaultProfile: defaultProfile}
}

// RegisterRoutes registers synchronizer endpoints.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/status", h.Status)
	g.POST("/authorize", h.Authorize)
	g.POST("/callback", h.Callback)
	g.POST("/signout", h.SignOut)
	g.POST("/pull", h.Pull)
	g.POST("/import", h.ImportWatched)
}

func (h *Handlers) profileID(c echo.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if p := c.QueryParam("profileId"); p != "" {
		return p
	}
	return h.defaultProfile
}

// Status reports the session state of a profile.
func (h *Handlers) Status(c echo.Context) error {
	profileID := h.profileID(c, "")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"profileId": profileID,
		"state":     h.service.State(c.Request().Context(), profileID),
	})
}

// AuthorizeRequest names the profile starting an authorization.
type AuthorizeRequest struct {
	ProfileID string `json:"profileId"`
}

// Authorize starts the OAuth flow and returns the URL to open.
func (h *Handlers) Authorize(c echo.Context) error {
	var req AuthorizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	url, err := h.service.BeginAuthorization(h.profileID(c, req.ProfileID))
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// CallbackRequest carries the authorization code from the redirect.
type CallbackRequest struct {
	ProfileID string `json:"profileId"`
	Code      string `json:"code"`
}

// Callback exchanges the authorization code for a token.
func (h *Handlers) Callback(c echo.Context) error {
	var req CallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "code is required"})
	}

	profileID := h.profileID(c, req.ProfileID)
	if err := h.service.CompleteAuthorization(c.Request().Context(), profileID, req.Code); err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"profileId": profileID,
		"state":     StateSignedIn,
	})
}

// SignOut discards the profile's token.
func (h *Handlers) SignOut(c echo.Context) error {
	var req AuthorizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if err := h.service.SignOut(c.Request().Context(), h.profileID(c, req.ProfileID)); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// Pull merges remote watch history into the local library.
func (h *Handlers) Pull(c echo.Context) error {
	var req AuthorizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	summary, err := h.service.Pull(c.Request().Context(), h.profileID(c, req.ProfileID))
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, summary)
}

// ImportWatched merges watched marks from an uploaded backup document
// without touching anything already marked locally.
func (h *Handlers) ImportWatched(c echo.Context) error {
	doc, err := backup.Read(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	summary, err := h.service.ImportWatched(c.Request().Context(), doc, h.profileID(c, ""))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, summary)
}
