package cluster

import "math"

func sqDist(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	return dx*dx + dy*dy
}

func minMax(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// splitAntimeridian returns one query box for the common case, or two boxes
// when the requested longitude range wraps across the antimeridian (minX
// greater than maxX). Each returned box is in the caller's native
// (unprojected) coordinate space, ordered minX/minY/maxX/maxY.
func splitAntimeridian(minX, minY, maxX, maxY float64) [][4]float64 {
	if minX <= maxX {
		return [][4]float64{{minX, minY, maxX, maxY}}
	}
	return [][4]float64{
		{minX, minY, 180, maxY},
		{-180, minY, maxX, maxY},
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MetricStats is a min/max/sum/average rollup over one numeric field of a
// search result set. It summarizes a query result, not a cluster's own
// aggregate payload (that's the map/reduce protocol in aggregate.go).
type MetricStats struct {
	Min     float64
	Max     float64
	Sum     float64
	Average float64
	Count   int
}

// ResultMetricStats rolls a numeric field up across results, using extract
// to pull the field's value out of each result (a cluster's NumPoints, a
// leaf's original point, or any value derived from either). Results for
// which extract returns ok=false are skipped.
func ResultMetricStats[R any](results []R, extract func(R) (float64, bool)) MetricStats {
	var s MetricStats
	first := true
	for _, r := range results {
		v, ok := extract(r)
		if !ok {
			continue
		}
		if first {
			s.Min, s.Max = v, v
			first = false
		} else {
			if v < s.Min {
				s.Min = v
			}
			if v > s.Max {
				s.Max = v
			}
		}
		s.Sum += v
		s.Count++
	}
	if s.Count > 0 {
		s.Average = s.Sum / float64(s.Count)
	}
	return s
}

// ResultCategoryDistribution computes the percentage share of each distinct
// category label across a result set, using category to pull the label out
// of each result. Results for which category returns ok=false are skipped.
func ResultCategoryDistribution[R any](results []R, category func(R) (string, bool)) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, r := range results {
		label, ok := category(r)
		if !ok {
			continue
		}
		counts[label]++
		total++
	}
	dist := make(map[string]float64, len(counts))
	if total == 0 {
		return dist
	}
	for label, n := range counts {
		dist[label] = float64(n) / float64(total) * 100
	}
	return dist
}
