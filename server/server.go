// Package server wires the Echo HTTP server: API routes, static file
// serving, middleware, and the session sweep job lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/nbolat/course-site/internal/profile"
	"github.com/nbolat/course-site/plugin/ai"
	"github.com/nbolat/course-site/plugin/ai/session"
	"github.com/nbolat/course-site/server/middleware"
	apiv1 "github.com/nbolat/course-site/server/router/api/v1"
	"github.com/nbolat/course-site/server/stats"
	"github.com/nbolat/course-site/store"
)

// writeRequestsPerMinute is the per-IP budget for POST endpoints.
const writeRequestsPerMinute = 10

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer     *echo.Echo
	sweepJob       *session.SweepJob
	statsCollector *stats.Collector
}

func NewServer(ctx context.Context, serverProfile *profile.Profile, st *store.Store) (*Server, error) {
	sessionStore := session.NewStore()

	prompts := ai.LoadPrompts(serverProfile.PromptDir)
	aiConfig := ai.NewConfigFromProfile(serverProfile)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid ai configuration")
	}
	generator, err := ai.NewGenerator(aiConfig, prompts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ai generator")
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(requestLogger())
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	echoServer.Use(middleware.NewRateLimiter(writeRequestsPerMinute).Middleware())

	s := &Server{
		Profile:    serverProfile,
		Store:      st,
		echoServer: echoServer,
		sweepJob:   session.NewSweepJob(sessionStore, session.DefaultSweepInterval),
	}

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	chat := ai.NewChat(sessionStore, generator)
	s.statsCollector = stats.NewCollector(st, chat)
	apiService := apiv1.NewAPIV1Service(serverProfile, st, chat, s.statsCollector)
	apiService.RegisterRoutes(echoServer)

	// The landing page and its assets. Unmatched paths fall back to
	// index.html so client-side routes resolve.
	if serverProfile.StaticDir != "" {
		echoServer.Use(echomiddleware.StaticWithConfig(echomiddleware.StaticConfig{
			Root:  serverProfile.StaticDir,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api") ||
					c.Request().URL.Path == "/healthz"
			},
		}))
	}

	return s, nil
}

// Start begins serving requests and starts the session sweep job. It does not
// block; failures surface through the returned error channel of echo itself.
func (s *Server) Start(ctx context.Context) error {
	s.sweepJob.Start(ctx)
	s.statsCollector.Start(ctx)

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started",
		slog.String("address", address),
		slog.String("mode", s.Profile.Mode),
		slog.String("version", s.Profile.Version))

	go func() {
		if err := s.echoServer.Start(address); err != nil && errors.Is(err, http.ErrServerClosed) {
			slog.Info("http server closed")
		} else if err != nil {
			slog.Error("failed to start http server", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Shutdown stops the sweep job, drains in-flight requests, and closes the
// database.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s.sweepJob.Stop()
	s.statsCollector.Stop()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}
	slog.Info("server shutdown complete")
}

// requestLogger logs every request with a generated id, method, path, status
// and latency.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := uuid.NewString()
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			slog.Info("request",
				slog.String("id", requestID),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.Int("status", c.Response().Status),
				slog.Duration("latency", time.Since(start)))
			return err
		}
	}
}
