package main

import (
	"math/rand"
	"time"

	"github.com/tcabral/clustopher/cluster"
)

// GeoPoint is the demo CLI's point type: a longitude/latitude location
// with an arbitrary numeric metric payload and free-form metadata,
// modeled on the teacher's generated test fixtures.
type GeoPoint struct {
	ID       uint32
	Lng, Lat float64
	Metrics  map[string]float64
	Metadata map[string]interface{}
}

func geoPointOptions() cluster.Options[GeoPoint] {
	return cluster.Options[GeoPoint]{
		GetX: func(p GeoPoint) float64 { return p.Lng },
		GetY: func(p GeoPoint) float64 { return p.Lat },
	}
}

// sumMetrics is the AggregateFuncs Map/Reduce/Clone triple used by serve
// and bench: it sums every numeric metric key across a cluster's members.
func sumMetrics() *cluster.AggregateFuncs[GeoPoint] {
	return &cluster.AggregateFuncs[GeoPoint]{
		Map: func(p GeoPoint) (interface{}, error) {
			sums := make(map[string]float64, len(p.Metrics))
			for k, v := range p.Metrics {
				sums[k] = v
			}
			return sums, nil
		},
		Reduce: func(acc, other interface{}) {
			a := acc.(map[string]float64)
			for k, v := range other.(map[string]float64) {
				a[k] += v
			}
		},
		Clone: func(v interface{}) interface{} {
			src := v.(map[string]float64)
			clone := make(map[string]float64, len(src))
			for k, val := range src {
				clone[k] = val
			}
			return clone
		},
	}
}

// generateRandomPoints creates n random points scattered within a
// geographic bounding box, with a handful of numeric metrics and
// metadata fields, for the bench subcommand and serve's demo seed.
func generateRandomPoints(n int, minLng, maxLng, minLat, maxLat float64) []GeoPoint {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	points := make([]GeoPoint, n)
	randomMetricName := "metric_extra"

	for i := 0; i < n; i++ {
		points[i] = GeoPoint{
			ID:  uint32(i + 1),
			Lng: minLng + r.Float64()*(maxLng-minLng),
			Lat: minLat + r.Float64()*(maxLat-minLat),
			Metrics: map[string]float64{
				"value":          r.Float64() * 100,
				"size":           r.Float64() * 50,
				"sales":          r.Float64() * 1000,
				"customers":      float64(r.Intn(100)),
				randomMetricName: r.Float64() * 200,
			},
			Metadata: map[string]interface{}{
				"category": []string{"A", "B", "C"}[r.Intn(3)],
			},
		}
	}
	return points
}
