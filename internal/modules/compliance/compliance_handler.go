package compliance

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"delivery-and-compliance/internal/middleware"
	"delivery-and-compliance/internal/models"
)

// Handler exposes the purchase-limit endpoints. All routes sit behind the
// JWT middleware; the user identity and limit class come from the token, never
// from the request body.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/compliance/check-limits", h.CheckLimits)
	g.POST("/compliance/record-purchase", h.RecordPurchase)
	g.GET("/compliance/limits-summary", h.LimitsSummary)
}

// CheckLimits runs an advisory limit check for the proposed items. A denial
// is a 200 with allowed=false; only invalid input or a broken history store
// produce non-2xx statuses.
func (h *Handler) CheckLimits(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CheckLimitsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	check, err := h.svc.CheckLimits(ctx, middleware.UserID(c), req.Items, middleware.UserType(c))
	if err != nil {
		if errors.Is(err, models.ErrInvalidPurchaseItem) {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		}
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Message: "purchase history unavailable, try again"})
	}
	return c.JSON(http.StatusOK, check)
}

// RecordPurchase commits a fulfilled purchase to the history log.
func (h *Handler) RecordPurchase(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.RecordPurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	purchase := &models.Purchase{
		ID:          req.ID,
		UserID:      middleware.UserID(c),
		UserType:    middleware.UserType(c),
		Items:       req.Items,
		TotalAmount: req.TotalAmount,
		Timestamp:   req.Timestamp,
	}
	if err := h.svc.RecordPurchase(ctx, purchase); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidPurchaseItem):
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		case errors.Is(err, models.ErrDuplicatePurchase):
			// Already counted; a retry should not double-record.
			return c.NoContent(http.StatusNoContent)
		default:
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to record purchase"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// LimitsSummary returns used/limit/remaining for the daily and monthly
// windows.
func (h *Handler) LimitsSummary(c echo.Context) error {
	ctx := c.Request().Context()

	summary, err := h.svc.LimitsSummary(ctx, middleware.UserID(c), middleware.UserType(c))
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Message: "purchase history unavailable, try again"})
	}
	return c.JSON(http.StatusOK, summary)
}
