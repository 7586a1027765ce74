// Package api is the HTTP surface of the application. It wires the
// domain services behind an Echo server.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	apimw "github.com/watchlog/watchlog/internal/api/middleware"
	"github.com/watchlog/watchlog/internal/backup"
	"github.com/watchlog/watchlog/internal/calendar"
	"github.com/watchlog/watchlog/internal/config"
	"github.com/watchlog/watchlog/internal/events"
	"github.com/watchlog/watchlog/internal/library"
	"github.com/watchlog/watchlog/internal/metadata"
	"github.com/watchlog/watchlog/internal/metadata/tmdb"
	"github.com/watchlog/watchlog/internal/metadata/tvmaze"
	"github.com/watchlog/watchlog/internal/scheduler"
	"github.com/watchlog/watchlog/internal/store"
	"github.com/watchlog/watchlog/internal/syncer"
	"github.com/watchlog/watchlog/internal/traktsync"
)

// Deps bundles the services the server exposes. All fields except
// Scheduler are required.
type Deps struct {
	Store            *store.Store
	Hub              *events.Hub
	Library          *library.Service
	Syncer           *syncer.Service
	TraktSync        *traktsync.Service
	Backup           *backup.Service
	Calendar         *calendar.Service
	Scheduler        *scheduler.Scheduler
	TVMaze           *tvmaze.Client
	TMDB             *tmdb.Client
	SearchCache      *metadata.Cache
	DefaultProfileID string
}

// Server handles HTTP requests for the API.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	deps      Deps
	logger    zerolog.Logger
	startTime time.Time
}

// NewServer creates an API server around the given services.
func NewServer(cfg *config.Config, deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		cfg:       cfg,
		deps:      deps,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.SecurityHeaders())
	s.echo.Use(middleware.BodyLimit("2M"))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	ctx := c.Request().Context()

	shows, _ := s.deps.Store.ListShows(ctx, s.deps.DefaultProfileID)
	movies, _ := s.deps.Store.ListMovies(ctx, s.deps.DefaultProfileID)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"startTime":  s.startTime.Format(time.RFC3339),
		"showCount":  len(shows),
		"movieCount": len(movies),
		"clients":    s.deps.Hub.ClientCount(),
	})
}
