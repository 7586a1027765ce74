package library

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/watchlog/watchlog/internal/store"
)

// ShowDetail is a show aggregate with its episodes and cast.
type ShowDetail struct {
	*store.Show
	Episodes []*store.Episode    `json:"episodes"`
	Cast     []*store.CastMember `json:"cast"`
}

// MovieDetail is a movie with its cast.
type MovieDetail struct {
	*store.Movie
	Cast []*store.CastMember `json:"cast"`
}

// ListShows returns all shows tracked under a profile.
func (s *Service) ListShows(ctx context.Context, profileID string) ([]*store.Show, error) {
	return s.store.ListShows(ctx, profileID)
}

// GetShowDetail loads a show with its episodes and cast.
func (s *Service) GetShowDetail(ctx context.Context, showID int64) (*ShowDetail, error) {
	show, err := s.store.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	episodes, err := s.store.ListEpisodes(ctx, showID)
	if err != nil {
		return nil, err
	}
	cast, err := s.store.ListShowCast(ctx, showID)
	if err != nil {
		return nil, err
	}
	return &ShowDetail{Show: show, Episodes: episodes, Cast: cast}, nil
}

// ListMovies returns all movies tracked under a profile.
func (s *Service) ListMovies(ctx context.Context, profileID string) ([]*store.Movie, error) {
	return s.store.ListMovies(ctx, profileID)
}

// GetMovieDetail loads a movie with its cast.
func (s *Service) GetMovieDetail(ctx context.Context, movieID int64) (*MovieDetail, error) {
	movie, err := s.store.GetMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	cast, err := s.store.ListMovieCast(ctx, movieID)
	if err != nil {
		return nil, err
	}
	return &MovieDetail{Movie: movie, Cast: cast}, nil
}

// DeleteMovie removes a movie aggregate.
func (s *Service) DeleteMovie(ctx context.Context, movieID int64) error {
	return s.store.DeleteMovie(ctx, movieID)
}

// Handlers exposes the library over HTTP.
type Handlers struct {
	service        *Service
	defaultProfile string
}

// NewHandlers creates library handlers. defaultProfile is used when a
// request names no profile.
func NewHandlers(service *Service, defaultProfile string) *Handlers {
	return &Handlers{service: service, defaultProfile: defaultProfile}
}

// RegisterShowRoutes registers show endpoints.
func (h *Handlers) RegisterShowRoutes(g *echo.Group) {
	g.GET("", h.ListShows)
	g.POST("", h.AddShow)
	g.GET("/:id", h.GetShow)
	g.DELETE("/:id", h.DeleteShow)
}

// RegisterEpisodeRoutes registers episode endpoints.
func (h *Handlers) RegisterEpisodeRoutes(g *echo.Group) {
	g.PUT("/:id/watched", h.ToggleWatched)
}

// RegisterMovieRoutes registers movie endpoints.
func (h *Handlers) RegisterMovieRoutes(g *echo.Group) {
	g.GET("", h.ListMovies)
	g.POST("", h.AddMovie)
	g.GET("/:id", h.GetMovie)
	g.DELETE("/:id", h.DeleteMovie)
	g.PUT("/:id/status", h.SetMovieStatus)
	g.PUT("/:id/rating", h.RateMovie)
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

// ListShows returns all shows of a profile.
func (h *Handlers) ListShows(c echo.Context) error {
	shows, err := h.service.ListShows(c.Request().Context(), h.profileID(c, ""))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, shows)
}

// AddShowRequest is the payload for adding a show.
type AddShowRequest struct {
	TVMazeID  int    `json:"tvmazeId"`
	Quality   string `json:"quality"`
	ProfileID string `json:"profileId"`
	Merge     bool   `json:"merge"`
}

// AddShow adds a show under a quality tag.
func (h *Handlers) AddShow(c echo.Context) error {
	var req AddShowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.TVMazeID <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "tvmazeId is required"})
	}
	if req.Quality == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "quality is required"})
	}

	outcome, show, err := h.service.AddOrUpdate(c.Request().Context(), req.TVMazeID, req.Quality,
		h.profileID(c, req.ProfileID), AddOptions{MergeOnDuplicate: req.Merge})
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	status := http.StatusOK
	if outcome == OutcomeCreated {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]interface{}{
		"outcome": outcome,
		"show":    show,
	})
}

// GetShow returns one show with episodes and cast.
func (h *Handlers) GetShow(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	detail, err := h.service.GetShowDetail(c.Request().Context(), id)
	if err != nil {
		if err == store.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, detail)
}

// DeleteShow removes a show and its episodes.
func (h *Handlers) DeleteShow(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		if err == store.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// ToggleWatched flips the watched flag of an episode.
func (h *Handlers) ToggleWatched(c echo.Context) error {
	ep, err := h.service.ToggleWatched(c.Request().Context(), c.Param("id"))
	if err != nil {
		if err == store.ErrEpisodeNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "episode not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, ep)
}

// ListMovies returns all movies of a profile.
func (h *Handlers) ListMovies(c echo.Context) error {
	movies, err := h.service.ListMovies(c.Request().Context(), h.profileID(c, ""))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, movies)
}

// AddMovieRequest is the payload for adding a movie.
type AddMovieRequest struct {
	TMDBID    int    `json:"tmdbId"`
	Quality   string `json:"quality"`
	ProfileID string `json:"profileId"`
}

// AddMovie adds a movie by rich-metadata id.
func (h *Handlers) AddMovie(c echo.Context) error {
	var req AddMovieRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.TMDBID <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "tmdbId is required"})
	}

	outcome, movie, err := h.service.AddMovie(c.Request().Context(), req.TMDBID, req.Quality,
		h.profileID(c, req.ProfileID))
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	status := http.StatusOK
	if outcome == OutcomeCreated {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]interface{}{
		"outcome": outcome,
		"movie":   movie,
	})
}

// GetMovie returns one movie with cast.
func (h *Handlers) GetMovie(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	detail, err := h.service.GetMovieDetail(c.Request().Context(), id)
	if err != nil {
		if err == store.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, detail)
}

// DeleteMovie removes a movie.
func (h *Handlers) DeleteMovie(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.service.DeleteMovie(c.Request().Context(), id); err != nil {
		if err == store.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// SetMovieStatusRequest is the payload for a status change.
type SetMovieStatusRequest struct {
	Status    string     `json:"status"`
	WatchedAt *time.Time `json:"watchedAt,omitempty"`
}

// SetMovieStatus updates a movie's watch status.
func (h *Handlers) SetMovieStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	var req SetMovieStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	status := store.WatchStatus(req.Status)
	switch status {
	case store.StatusToWatch, store.StatusWatched, store.StatusAbandoned:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
	}

	movie, err := h.service.SetMovieStatus(c.Request().Context(), id, status, req.WatchedAt)
	if err != nil {
		if err == store.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, movie)
}

// RateMovieRequest is the payload for a rating change.
type RateMovieRequest struct {
	Rating int `json:"rating"`
}

// RateMovie stores the personal rating of a movie.
func (h *Handlers) RateMovie(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	var req RateMovieRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Rating < 1 || req.Rating > 10 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "rating must be between 1 and 10"})
	}

	movie, err := h.service.RateMovie(c.Request().Context(), id, req.Rating)
	if err != nil {
		if err == store.ErrMovieNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, movie)
}
