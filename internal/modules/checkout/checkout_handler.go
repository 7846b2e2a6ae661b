package checkout

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"delivery-and-compliance/internal/middleware"
	"delivery-and-compliance/internal/models"
)

// Handler exposes the order endpoints behind the JWT middleware.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders", h.PlaceOrder)
	g.GET("/orders", h.ListOrders)
	g.GET("/orders/:orderId", h.GetOrder)
}

// PlaceOrder runs checkout. Limit denials are 409s carrying the full check
// result; out-of-zone, closed-hours and minimum-order failures are 422s.
func (h *Handler) PlaceOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.svc.PlaceOrder(ctx, middleware.UserID(c), middleware.Email(c), middleware.UserType(c), req)
	if err != nil {
		var denied *LimitDeniedError
		switch {
		case errors.As(err, &denied):
			return c.JSON(http.StatusConflict, denied.Check)
		case errors.Is(err, models.ErrAddressNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "address not found, please re-enter it"})
		case errors.Is(err, models.ErrGeocodeUnavailable):
			return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Message: "address lookup is temporarily unavailable, please try again"})
		case errors.Is(err, models.ErrOutsideDeliveryArea):
			return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Message: "address is outside our delivery area"})
		case errors.Is(err, models.ErrDeliveryClosed):
			return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Message: "delivery is closed right now"})
		case errors.Is(err, models.ErrBelowMinimumOrder):
			return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Message: "order is below the zone minimum"})
		case errors.Is(err, models.ErrInvalidPurchaseItem):
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to place order"})
		}
	}
	return c.JSON(http.StatusCreated, order)
}

// GetOrder returns one of the caller's orders.
func (h *Handler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.svc.GetOrderDetails(ctx, c.Param("orderId"), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to get order"})
	}
	return c.JSON(http.StatusOK, order)
}

// ListOrders returns the caller's orders with pagination.
func (h *Handler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	orders, total, err := h.svc.ListUserOrders(ctx, middleware.UserID(c), page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to list orders"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"orders": orders,
		"total":  total,
	})
}
