package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const serviceName = "voice-relay"

// RouteOptions configures the optional parts of the HTTP surface
type RouteOptions struct {
	// StaticDir serves the browser client from / when set
	StaticDir string

	// MaxBodySize caps voice uploads, e.g. "25M"; empty means no limit
	MaxBodySize string

	STTProviders []string
	TTSProviders []string
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, handler *RelayHandler, opts RouteOptions, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:       "ok",
			Service:      serviceName,
			STTProviders: opts.STTProviders,
			TTSProviders: opts.TTSProviders,
		})
	})

	voiceMiddleware := []echo.MiddlewareFunc{handler.IssueIdentity}
	if opts.MaxBodySize != "" {
		voiceMiddleware = append(voiceMiddleware, middleware.BodyLimit(opts.MaxBodySize))
	}
	e.POST("/api/voice", handler.Voice, voiceMiddleware...)

	if opts.StaticDir != "" {
		logger.Info("Serving static client", zap.String("dir", opts.StaticDir))
		e.Static("/", opts.StaticDir)
	}
}
