package geofence

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"delivery-and-compliance/internal/models"
	"delivery-and-compliance/pkg/geo"
)

// Delivery service window and fee schedule.
const (
	openHour  = 9  // inclusive
	closeHour = 21 // exclusive

	freeDeliveryRadiusMiles = 3.0
	perMileSurcharge        = 2.0

	peakStartHour  = 17
	peakEndHour    = 20 // inclusive
	peakETABumpMin = 15
)

// ServiceInterface defines the geofencing operations exposed to handlers and
// to the checkout flow.
type ServiceInterface interface {
	ValidateAddress(ctx context.Context, req models.ValidateAddressRequest) (*models.AddressValidationResult, error)
	Zones() []models.DeliveryZone
	Availability(at time.Time) models.AvailabilityResult
}

// service evaluates addresses against a fixed, ordered zone list captured at
// construction. The zone slice is never mutated after NewService returns, so
// the evaluator itself is a pure function of its inputs.
type service struct {
	zones      []models.DeliveryZone
	store      geo.Coordinate
	loc        *time.Location
	httpClient *http.Client
	apiKey     string
	logger     *zap.Logger
}

// NewService builds the evaluator over the given zone list. Zone order is
// the documented tie-break: when polygons overlap, the earliest zone wins.
// The delivery window and peak hours are judged in loc, the dispensary's
// local timezone, regardless of the server clock.
func NewService(zones []models.DeliveryZone, store geo.Coordinate, loc *time.Location, apiKey string, logger *zap.Logger) ServiceInterface {
	return &service{
		zones:      zones,
		store:      store,
		loc:        loc,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Zones returns the configured zone list in precedence order.
func (s *service) Zones() []models.DeliveryZone {
	return s.zones
}

// ValidateAddress resolves the request to a coordinate (geocoding the
// free-text address when no lat/lng was supplied) and matches it against the
// active zones. A resolved address outside every zone is a valid negative
// result, not an error; a failed geocode is models.ErrAddressNotFound.
func (s *service) ValidateAddress(ctx context.Context, req models.ValidateAddressRequest) (*models.AddressValidationResult, error) {
	point, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	zone := s.matchZone(point)
	if zone == nil {
		return &models.AddressValidationResult{
			IsValid: false,
			Message: "Sorry, we don't currently deliver to this address. Please try a different location or choose pickup.",
		}, nil
	}

	distance := geo.Distance(s.store, point)
	fee := deliveryFee(zone, distance)
	eta := s.estimatedTime(zone, time.Now())

	return &models.AddressValidationResult{
		IsValid:       true,
		Zone:          zone,
		DistanceMiles: distance,
		DeliveryFee:   fee,
		EstimatedTime: eta,
		Message: fmt.Sprintf("Delivery available in %s. Fee: $%.2f, Minimum order: $%.2f",
			zone.Name, fee, zone.MinimumOrder),
	}, nil
}

// resolve produces the coordinate for a validation request. Caller-supplied
// coordinates are checked for finiteness and range; otherwise the address is
// geocoded.
func (s *service) resolve(ctx context.Context, req models.ValidateAddressRequest) (geo.Coordinate, error) {
	if req.Lat != nil && req.Lng != nil {
		p := geo.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		if !p.Valid() {
			return geo.Coordinate{}, fmt.Errorf("geofence.ValidateAddress: coordinate out of range: %w", models.ErrAddressNotFound)
		}
		return p, nil
	}
	if strings.TrimSpace(req.Address) == "" {
		return geo.Coordinate{}, fmt.Errorf("geofence.ValidateAddress: empty address: %w", models.ErrAddressNotFound)
	}
	return s.geocode(ctx, req.Address)
}

// matchZone runs the first-match-wins containment scan. Inactive zones are
// skipped regardless of containment.
func (s *service) matchZone(p geo.Coordinate) *models.DeliveryZone {
	for i := range s.zones {
		zone := &s.zones[i]
		if !zone.IsActive {
			continue
		}
		if geo.PointInPolygon(p, zone.Polygon) {
			return zone
		}
	}
	return nil
}

// deliveryFee is the zone base fee plus a per-mile surcharge, rounded up to
// whole miles, for distance beyond the free radius. Monotonic non-decreasing
// in distance.
func deliveryFee(zone *models.DeliveryZone, distanceMiles float64) float64 {
	fee := zone.DeliveryFee
	if distanceMiles > freeDeliveryRadiusMiles {
		excess := distanceMiles - freeDeliveryRadiusMiles
		fee += math.Ceil(excess) * perMileSurcharge
	}
	return fee
}

// Availability reports whether the given instant falls in the delivery
// window. The window is the half-open [09:00, 21:00) in the dispensary's
// local timezone, uniform across all seven days.
func (s *service) Availability(at time.Time) models.AvailabilityResult {
	h := at.In(s.loc).Hour()
	if h < openHour || h >= closeHour {
		return models.AvailabilityResult{
			Available: false,
			Message:   fmt.Sprintf("Delivery is available from %d:00 AM to %d:00 PM", openHour, closeHour-12),
		}
	}
	return models.AvailabilityResult{
		Available: true,
		Message:   "Delivery is available now",
	}
}

// estimatedTime returns the zone's ETA range, widening the upper bound by
// fifteen minutes during evening peak hours in the dispensary's timezone.
// Ranges that don't parse as "lo-hi min" pass through untouched.
func (s *service) estimatedTime(zone *models.DeliveryZone, at time.Time) string {
	h := at.In(s.loc).Hour()
	if h < peakStartHour || h > peakEndHour {
		return zone.EstimatedTime
	}
	parts := strings.SplitN(strings.TrimSuffix(zone.EstimatedTime, " min"), "-", 2)
	if len(parts) != 2 {
		return zone.EstimatedTime
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return zone.EstimatedTime
	}
	return fmt.Sprintf("%s-%d min", strings.TrimSpace(parts[0]), hi+peakETABumpMin)
}

// geocode resolves a street address through the Google Geocoding API.
func (s *service) geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	u := "https://maps.googleapis.com/maps/api/geocode/json"
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geofence.geocode: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geofence.geocode: %w: %v", models.ErrGeocodeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("geocode backend error", zap.Int("status_code", resp.StatusCode))
		return geo.Coordinate{}, fmt.Errorf("geofence.geocode: status %d: %w", resp.StatusCode, models.ErrGeocodeUnavailable)
	}

	var out struct {
		Status  string `json:"status"`
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return geo.Coordinate{}, fmt.Errorf("geofence.geocode: decode: %w", err)
	}
	switch {
	case out.Status == "OK" && len(out.Results) > 0:
	case out.Status == "OK" || out.Status == "ZERO_RESULTS":
		s.logger.Debug("geocode miss", zap.String("status", out.Status))
		return geo.Coordinate{}, models.ErrAddressNotFound
	default:
		// REQUEST_DENIED, OVER_QUERY_LIMIT and friends are our problem,
		// not the caller's.
		s.logger.Warn("geocode backend error", zap.String("status", out.Status))
		return geo.Coordinate{}, fmt.Errorf("geofence.geocode: status %s: %w", out.Status, models.ErrGeocodeUnavailable)
	}
	loc := out.Results[0].Geometry.Location
	return geo.Coordinate{Lat: loc.Lat, Lng: loc.Lng}, nil
}
