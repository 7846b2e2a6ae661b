// Package geo provides the pure geometric primitives used by the delivery
// zone evaluator: great-circle distance, point-in-polygon containment and
// polygon sanity checks. Everything here is deterministic and side-effect
// free.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used for haversine distances.
const EarthRadiusMiles = 3959.0

// Coordinate is a WGS84 decimal-degree lat/lng pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is a finite point within the valid
// lat/lng ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Distance returns the haversine great-circle distance between a and b in
// miles. It is symmetric and returns 0 when a == b.
func Distance(a, b Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMiles * c
}

func toRad(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}

// PointInPolygon reports whether p lies inside the polygon using the
// even-odd ray-casting rule. The polygon is implicitly closed: the last
// vertex connects back to the first. Points exactly on an edge are
// implementation-defined but deterministic for a given polygon and point.
func PointInPolygon(p Coordinate, polygon []Coordinate) bool {
	inside := false
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		xi, yi := polygon[i].Lat, polygon[i].Lng
		xj, yj := polygon[j].Lat, polygon[j].Lng

		intersects := (yi > p.Lng) != (yj > p.Lng) &&
			p.Lat < (xj-xi)*(p.Lng-yi)/(yj-yi)+xi
		if intersects {
			inside = !inside
		}
	}
	return inside
}

// PolygonValid reports whether the polygon can be used for containment
// tests: at least three vertices, all valid coordinates, and a non-zero
// enclosed area. Collinear or duplicate-vertex polygons enclose no area and
// make containment undefined, so they are rejected.
func PolygonValid(polygon []Coordinate) bool {
	if len(polygon) < 3 {
		return false
	}
	for _, v := range polygon {
		if !v.Valid() {
			return false
		}
	}
	return math.Abs(shoelaceArea(polygon)) > 1e-12
}

// shoelaceArea returns the signed planar area of the polygon in squared
// degrees. Only the zero/non-zero distinction is used here.
func shoelaceArea(polygon []Coordinate) float64 {
	var sum float64
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		sum += polygon[j].Lat*polygon[i].Lng - polygon[i].Lat*polygon[j].Lng
	}
	return sum / 2
}
