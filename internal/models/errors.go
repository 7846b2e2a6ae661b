package models

import "errors"

// ErrorResponse is the uniform JSON error envelope returned by handlers.
type ErrorResponse struct {
	Message string `json:"message"`
}

var ErrNotFound = errors.New("requested resource not found")
var ErrForbidden = errors.New("user does not have permission to access this resource")
var ErrConflict = errors.New("resource conflict, item already exists")
var ErrInvalidToken = errors.New("token not found or expired")

// ErrAddressNotFound indicates the geocoder could not resolve the supplied
// street address to a coordinate. Distinct from an address that resolves but
// falls outside every delivery zone.
var ErrAddressNotFound = errors.New("address could not be resolved to a location")

// ErrOutsideDeliveryArea indicates a resolved address that no active zone
// contains. A valid negative result at the evaluator level; checkout treats
// it as a hard stop.
var ErrOutsideDeliveryArea = errors.New("address is outside all delivery zones")

// ErrLimitExceeded indicates the proposed purchase would push the user past
// a daily or monthly substance limit.
var ErrLimitExceeded = errors.New("purchase exceeds legal possession limits")

var ErrDeliveryClosed = errors.New("delivery is not available at this time")
var ErrBelowMinimumOrder = errors.New("order subtotal is below the zone minimum")

// ErrInvalidZonePolygon indicates a zone whose polygon has fewer than three
// vertices or encloses no area; such zones are rejected at load time rather
// than producing undefined containment results.
var ErrInvalidZonePolygon = errors.New("delivery zone polygon is degenerate")

// ErrGeocodeUnavailable indicates the geocoding backend failed (transport
// error, non-2xx response, or a denied/over-quota status). Distinct from
// ErrAddressNotFound so upstream outages are not blamed on the caller.
var ErrGeocodeUnavailable = errors.New("address lookup service unavailable")

// ErrInvalidPurchaseItem indicates an item with a negative quantity or an
// unknown product type.
var ErrInvalidPurchaseItem = errors.New("invalid purchase item")

// ErrDuplicatePurchase indicates a purchase ID that was already recorded;
// recording is idempotent on ID.
var ErrDuplicatePurchase = errors.New("purchase already recorded")
