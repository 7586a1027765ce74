package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/watchlog/watchlog/internal/backup"
	"github.com/watchlog/watchlog/internal/calendar"
	"github.com/watchlog/watchlog/internal/library"
	"github.com/watchlog/watchlog/internal/metadata"
	"github.com/watchlog/watchlog/internal/store"
	"github.com/watchlog/watchlog/internal/syncer"
	"github.com/watchlog/watchlog/internal/traktsync"
)

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ws", s.deps.Hub.HandleWebSocket)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	profiles := api.Group("/profiles")
	profiles.GET("", s.listProfiles)
	profiles.POST("", s.createProfile)
	profiles.GET("/:id", s.getProfile)

	searchHandlers := metadata.NewHandlers(s.deps.TVMaze, s.deps.TMDB, s.deps.SearchCache)
	searchHandlers.RegisterRoutes(api.Group("/search"))

	libraryHandlers := library.NewHandlers(s.deps.Library, s.deps.DefaultProfileID)
	libraryHandlers.RegisterShowRoutes(api.Group("/shows"))
	libraryHandlers.RegisterEpisodeRoutes(api.Group("/episodes"))
	libraryHandlers.RegisterMovieRoutes(api.Group("/movies"))

	syncHandlers := syncer.NewHandlers(s.deps.Syncer, s.deps.DefaultProfileID)
	syncHandlers.RegisterRoutes(api.Group("/sync"))

	calendarHandlers := calendar.NewHandlers(s.deps.Calendar, s.deps.DefaultProfileID)
	calendarHandlers.RegisterRoutes(api.Group("/calendar"))

	backupHandlers := backup.NewHandlers(s.deps.Backup, s.deps.DefaultProfileID)
	backupHandlers.RegisterRoutes(api.Group("/backup"))

	traktHandlers := traktsync.NewHandlers(s.deps.TraktSync, s.deps.DefaultProfileID)
	traktHandlers.RegisterRoutes(api.Group("/trakt"))

	if s.deps.Scheduler != nil {
		tasks := api.Group("/scheduler/tasks")
		tasks.GET("", s.listTasks)
		tasks.POST("/:id/run", s.runTask)
	}
}

func (s *Server) listProfiles(c echo.Context) error {
	profiles, err := s.deps.Store.ListProfiles(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, profiles)
}

func (s *Server) createProfile(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	profile, err := s.deps.Store.CreateProfile(c.Request().Context(), req.Name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, profile)
}

func (s *Server) getProfile(c echo.Context) error {
	profile, err := s.deps.Store.GetProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		if err == store.ErrProfileNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) listTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Scheduler.ListTasks())
}

func (s *Server) runTask(c echo.Context) error {
	taskID := c.Param("id")
	if err := s.deps.Scheduler.RunNow(taskID); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "Task started",
		"taskId":  taskID,
	})
}
