package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	trashseparator "github.com/weedkat/trash-separator"
	"github.com/weedkat/trash-separator/controller"
)

// Controller is the part of the controller the HTTP surface uses
type Controller interface {
	Route(ctx context.Context, category string) error
	Execute(ctx context.Context, m trashseparator.Maneuver) error
	Reset(ctx context.Context) error
	Status() controller.Status
	Categories() []string
}

// Handler serves the controller over HTTP
type Handler struct {
	ctrl Controller
}

func NewHandler(ctrl Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

type routeRequest struct {
	Category string `json:"category"`
}

type Response struct {
	ID       string            `json:"id"`
	Category string            `json:"category,omitempty"`
	Maneuver string            `json:"maneuver,omitempty"`
	Status   controller.Status `json:"status"`
}

// HandleRoute sorts one item of the category in the body
func (h *Handler) HandleRoute(c echo.Context) error {
	var req routeRequest
	err := c.Bind(&req)
	if err != nil {
		return newBadRequestError("invalid JSON body", err)
	}

	if strings.TrimSpace(req.Category) == "" {
		return newBadRequestError("category is required", nil)
	}

	err = h.ctrl.Route(c.Request().Context(), req.Category)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Response{
		ID:       requestID(c),
		Category: req.Category,
		Status:   h.ctrl.Status(),
	})
}

// HandleManeuver runs the named maneuver directly
func (h *Handler) HandleManeuver(c echo.Context) error {
	name := c.Param("name")

	m, err := trashseparator.ParseManeuver(name)
	if err != nil {
		return newNotFoundError("maneuver", name)
	}

	err = h.ctrl.Execute(c.Request().Context(), m)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Response{
		ID:       requestID(c),
		Maneuver: m.String(),
		Status:   h.ctrl.Status(),
	})
}

// HandleReset re-homes the machine, clearing a fault
func (h *Handler) HandleReset(c echo.Context) error {
	err := h.ctrl.Reset(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Response{
		ID:     requestID(c),
		Status: h.ctrl.Status(),
	})
}

func (h *Handler) HandleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{
		ID:     requestID(c),
		Status: h.ctrl.Status(),
	})
}

func (h *Handler) HandleCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"id":         requestID(c),
		"categories": h.ctrl.Categories(),
	})
}

// HandleHealth reports whether the machine can take requests
func (h *Handler) HandleHealth(c echo.Context) error {
	status := h.ctrl.Status()

	code := http.StatusOK
	if status.State == controller.StateFaulted {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]string{
		"id":    requestID(c),
		"state": status.State.String(),
	})
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
