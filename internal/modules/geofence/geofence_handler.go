package geofence

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"delivery-and-compliance/internal/models"
)

// Handler exposes the delivery-zone endpoints. These are public: the
// storefront checks serviceability before the user signs in.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/delivery/validate-address", h.ValidateAddress)
	g.GET("/delivery/zones", h.GetZones)
	g.GET("/delivery/availability", h.GetAvailability)
}

// ValidateAddress resolves the posted address and reports zone eligibility,
// fee and ETA. An unresolvable address is a 404 distinct from the in-band
// "not serviceable" negative result.
func (h *Handler) ValidateAddress(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ValidateAddressRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}

	result, err := h.svc.ValidateAddress(ctx, req)
	if err != nil {
		if errors.Is(err, models.ErrAddressNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "address not found, please re-enter it"})
		}
		if errors.Is(err, models.ErrGeocodeUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Message: "address lookup is temporarily unavailable, please try again"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to validate address"})
	}
	return c.JSON(http.StatusOK, result)
}

// GetZones returns the configured zones in precedence order.
func (h *Handler) GetZones(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Zones())
}

// GetAvailability reports the delivery window state for an optional
// RFC3339 `at` query parameter, defaulting to now.
func (h *Handler) GetAvailability(c echo.Context) error {
	at := time.Now()
	if raw := c.QueryParam("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid 'at' timestamp, expected RFC3339"})
		}
		at = parsed
	}
	return c.JSON(http.StatusOK, h.svc.Availability(at))
}
