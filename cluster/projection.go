package cluster

import "math"

// Projection maps a caller point's native (x, y) coordinates into the unit
// square [0, 1]^2 the spatial indices operate in, and back. Project must be
// the exact inverse of Unproject (round-tripping within floating-point
// tolerance) or drill-down coordinates returned to the caller will drift
// from the input it supplied.
type Projection interface {
	Project(x, y float64) (px, py float64)
	Unproject(px, py float64) (x, y float64)
}

// WebMercator is the default Projection: longitude/latitude in degrees,
// projected the way web map tiles are, matching the teacher's
// projectFast/unprojectFast. Latitude is clamped to the Mercator-valid
// range before projecting.
type WebMercator struct{}

const maxMercatorLat = 85.05112878

func (WebMercator) Project(lng, lat float64) (float64, float64) {
	if lat > maxMercatorLat {
		lat = maxMercatorLat
	}
	if lat < -maxMercatorLat {
		lat = -maxMercatorLat
	}
	x := lng/360 + 0.5
	sinLat := math.Sin(lat * math.Pi / 180)
	y := 0.5 - 0.25*math.Log((1+sinLat)/(1-sinLat))/math.Pi
	if y < 0 {
		y = 0
	}
	if y > 1 {
		y = 1
	}
	return x, y
}

func (WebMercator) Unproject(px, py float64) (float64, float64) {
	lng := (px - 0.5) * 360
	y2 := math.Pi - 2*math.Pi*py
	lat := 180 / math.Pi * math.Atan(0.5*(math.Exp(y2)-math.Exp(-y2)))
	return lng, lat
}

// IdentityProjection passes caller coordinates through unchanged, for
// callers whose point type is already normalized into [0, 1]^2 (or who
// don't want any geographic projection applied at all).
type IdentityProjection struct{}

func (IdentityProjection) Project(x, y float64) (float64, float64)   { return x, y }
func (IdentityProjection) Unproject(x, y float64) (float64, float64) { return x, y }
