// Package server exposes the controller over HTTP
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/healthz", h.HandleHealth)
	e.GET("/status", h.HandleStatus)
	e.GET("/categories", h.HandleCategories)

	e.POST("/route", h.HandleRoute)
	e.POST("/maneuvers/:name", h.HandleManeuver)
	e.POST("/reset", h.HandleReset)
}

// SetupMiddleware configures request ids, panic recovery, request logging and error rendering
func SetupMiddleware(e *echo.Echo, logger *slog.Logger) {
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				logger.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}))
}

// New builds the HTTP server for ctrl
func New(ctrl Controller, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	SetupMiddleware(e, logger)
	RegisterRoutes(e, NewHandler(ctrl))

	return e
}

// Serve runs e on addr until ctx is done, then shuts it down gracefully
func Serve(ctx context.Context, e *echo.Echo, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	err := e.Shutdown(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}

	err = <-errc
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
