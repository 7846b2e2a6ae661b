package geofence

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"delivery-and-compliance/internal/models"
	"delivery-and-compliance/pkg/geo"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func coord(lat, lng float64) geo.Coordinate { return geo.Coordinate{Lat: lat, Lng: lng} }

// Two overlapping squares around downtown SF; zone A listed first.
func testZones() []models.DeliveryZone {
	return []models.DeliveryZone{
		{
			ID:   "zone-a",
			Name: "Downtown",
			Polygon: []geo.Coordinate{
				coord(37.77, -122.42), coord(37.79, -122.42),
				coord(37.79, -122.40), coord(37.77, -122.40),
			},
			DeliveryFee:   0,
			MinimumOrder:  25,
			EstimatedTime: "30-45 min",
			Position:      1,
			IsActive:      true,
		},
		{
			ID:   "zone-b",
			Name: "Extended Area",
			Polygon: []geo.Coordinate{
				coord(37.76, -122.43), coord(37.80, -122.43),
				coord(37.80, -122.39), coord(37.76, -122.39),
			},
			DeliveryFee:   10,
			MinimumOrder:  50,
			EstimatedTime: "45-60 min",
			Position:      2,
			IsActive:      true,
		},
	}
}

func newTestService(zones []models.DeliveryZone) ServiceInterface {
	return NewService(zones, coord(37.78, -122.41), time.UTC, "test-key", zap.NewNop())
}

func ptr(f float64) *float64 { return &f }

func TestValidateAddressFirstMatchWins(t *testing.T) {
	svc := newTestService(testZones())

	// Inside both zones; the earlier zone must win.
	res, err := svc.ValidateAddress(context.Background(), models.ValidateAddressRequest{
		Lat: ptr(37.78), Lng: ptr(-122.41),
	})
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	require.NotNil(t, res.Zone)
	assert.Equal(t, "zone-a", res.Zone.ID)
	assert.Contains(t, res.Message, "Downtown")
}

func TestValidateAddressInactiveZoneSkipped(t *testing.T) {
	zones := testZones()
	zones[0].IsActive = false
	svc := newTestService(zones)

	res, err := svc.ValidateAddress(context.Background(), models.ValidateAddressRequest{
		Lat: ptr(37.78), Lng: ptr(-122.41),
	})
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, "zone-b", res.Zone.ID)
}

func TestValidateAddressOutsideAllZones(t *testing.T) {
	svc := newTestService(testZones())

	res, err := svc.ValidateAddress(context.Background(), models.ValidateAddressRequest{
		Lat: ptr(34.05), Lng: ptr(-118.24), // Los Angeles
	})
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Nil(t, res.Zone)
	assert.Contains(t, res.Message, "don't currently deliver")
}

func TestValidateAddressBadCoordinate(t *testing.T) {
	svc := newTestService(testZones())

	_, err := svc.ValidateAddress(context.Background(), models.ValidateAddressRequest{
		Lat: ptr(95), Lng: ptr(-122.41),
	})
	assert.ErrorIs(t, err, models.ErrAddressNotFound)
}

func TestValidateAddressGeocodes(t *testing.T) {
	svc := newTestService(testZones()).(*service)
	svc.httpClient = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Contains(t, req.URL.String(), "maps.googleapis.com")
		body := `{"status":"OK","results":[{"geometry":{"location":{"lat":37.78,"lng":-122.41}}}]}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	})}

	res, err := svc.ValidateAddress(context.Background(), models.ValidateAddressRequest{Address: "123 Market St"})
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, "zone-a", res.Zone.ID)
}

func TestValidateAddressGeocodeMiss(t *testing.T) {
	svc := newTestService(testZones()).(*service)
	svc.httpClient = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		body := `{"status":"ZERO_RESULTS","results":[]}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	})}

	_, err := svc.ValidateAddress(context.Background(), models.ValidateAddressRequest{Address: "nowhere at all"})
	assert.ErrorIs(t, err, models.ErrAddressNotFound)
}

func TestValidateAddressGeocodeOutage(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
	}{
		{
			name: "server error",
			resp: &http.Response{
				StatusCode: http.StatusBadGateway,
				Body:       io.NopCloser(strings.NewReader("upstream error")),
				Header:     make(http.Header),
			},
		},
		{
			name: "request denied",
			resp: &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"status":"REQUEST_DENIED","results":[]}`)),
				Header:     make(http.Header),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(testZones()).(*service)
			svc.httpClient = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
				return tt.resp, nil
			})}

			_, err := svc.ValidateAddress(context.Background(), models.ValidateAddressRequest{Address: "123 Market St"})
			assert.ErrorIs(t, err, models.ErrGeocodeUnavailable)
			assert.NotErrorIs(t, err, models.ErrAddressNotFound)
		})
	}
}

func TestDeliveryFee(t *testing.T) {
	zone := &models.DeliveryZone{DeliveryFee: 10}

	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{"within free radius", 2.0, 10},
		{"at free radius boundary", 3.0, 10},
		{"fraction over rounds up", 3.1, 12},
		{"two miles over", 5.0, 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deliveryFee(zone, tt.distance))
		})
	}
}

func TestDeliveryFeeMonotonic(t *testing.T) {
	zone := &models.DeliveryZone{DeliveryFee: 5}
	prev := 0.0
	for d := 0.0; d <= 20; d += 0.25 {
		fee := deliveryFee(zone, d)
		assert.GreaterOrEqual(t, fee, prev, "fee decreased at distance %v", d)
		prev = fee
	}
}

func TestAvailabilityWindow(t *testing.T) {
	svc := newTestService(nil)

	at := func(hour int) time.Time {
		return time.Date(2025, 6, 2, hour, 30, 0, 0, time.UTC)
	}

	assert.False(t, svc.Availability(at(8)).Available)
	assert.True(t, svc.Availability(at(9)).Available, "opening hour is inclusive")
	assert.True(t, svc.Availability(at(20)).Available)
	assert.False(t, svc.Availability(at(21)).Available, "closing hour is exclusive")

	// Uniform across the week.
	for day := 0; day < 7; day++ {
		ts := time.Date(2025, 6, 1+day, 12, 0, 0, 0, time.UTC)
		assert.True(t, svc.Availability(ts).Available)
	}
}

func TestAvailabilityInDispensaryTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	svc := NewService(nil, coord(37.78, -122.41), loc, "test-key", zap.NewNop())

	// 22:00 UTC on June 2 is 15:00 in Los Angeles: mid-afternoon, open.
	afternoon := time.Date(2025, 6, 2, 22, 0, 0, 0, time.UTC)
	assert.True(t, svc.Availability(afternoon).Available,
		"3 PM at the dispensary must be inside the delivery window")

	// 05:00 UTC on June 2 is 22:00 the previous evening in Los Angeles.
	lateNight := time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC)
	assert.False(t, svc.Availability(lateNight).Available)
}

func TestEstimatedTimePeakBump(t *testing.T) {
	svc := newTestService(nil).(*service)
	zone := &models.DeliveryZone{EstimatedTime: "30-45 min"}

	offPeak := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)
	peak := time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, "30-45 min", svc.estimatedTime(zone, offPeak))
	assert.Equal(t, "30-60 min", svc.estimatedTime(zone, peak))

	// Unparseable ranges pass through.
	odd := &models.DeliveryZone{EstimatedTime: "about an hour"}
	assert.Equal(t, "about an hour", svc.estimatedTime(odd, peak))
}

func TestEstimatedTimePeakBumpInDispensaryTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	svc := NewService(nil, coord(37.78, -122.41), loc, "test-key", zap.NewNop()).(*service)
	zone := &models.DeliveryZone{EstimatedTime: "30-45 min"}

	// 01:00 UTC on June 3 is 18:00 on June 2 in Los Angeles: peak.
	peakUTC := time.Date(2025, 6, 3, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, "30-60 min", svc.estimatedTime(zone, peakUTC))
}
