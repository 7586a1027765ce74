package metadata

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/watchlog/watchlog/internal/metadata/tmdb"
	"github.com/watchlog/watchlog/internal/metadata/tvmaze"
)

// Handlers exposes provider search over HTTP.
type Handlers struct {
	tvmaze *tvmaze.Client
	tmdb   *tmdb.Client
	cache  *Cache
}

// NewHandlers creates search handlers.
func NewHandlers(tvmazeClient *tvmaze.Client, tmdbClient *tmdb.Client, cache *Cache) *Handlers {
	return &Handlers{
		tvmaze: tvmazeClient,
		tmdb:   tmdbClient,
		cache:  cache,
	}
}

// RegisterRoutes registers search endpoints.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/shows", h.SearchShows)
	g.GET("/movies", h.SearchMovies)
}

// SearchShows searches the schedule provider by name. Results are
// cached briefly to keep repeated lookups off the upstream API.
func (h *Handlers) SearchShows(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q parameter is required"})
	}

	cacheKey := "search:shows:" + query
	if h.cache != nil {
		if results, ok := h.cache.GetSearchResults(cacheKey); ok {
			return c.JSON(http.StatusOK, results)
		}
	}

	results, err := h.tvmaze.Search(c.Request().Context(), query)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	if h.cache != nil {
		h.cache.Set(cacheKey, results)
	}
	return c.JSON(http.StatusOK, results)
}

// SearchMovies searches the rich-metadata provider by title.
func (h *Handlers) SearchMovies(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q parameter is required"})
	}
	if !h.tmdb.IsConfigured() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "movie metadata provider is not configured"})
	}

	results, err := h.tmdb.SearchMovies(c.Request().Context(), query)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, results)
}
