package cluster

import (
	"math/rand"
	"sort"
	"testing"
)

func TestKDTreeEmpty(t *testing.T) {
	tr := NewKDTree(nil, nil, nil, 64)
	if tr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tr.Len())
	}
	if got := tr.Range(0, 0, 1, 1); len(got) != 0 {
		t.Errorf("Range on empty tree returned %d ids, want 0", len(got))
	}
	if got := tr.Within(0, 0, 1); len(got) != 0 {
		t.Errorf("Within on empty tree returned %d ids, want 0", len(got))
	}
}

func TestKDTreeRangeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 500
	xs := make([]float64, n)
	ys := make([]float64, n)
	ids := make([]int, n)
	for i := range xs {
		xs[i] = rng.Float64()
		ys[i] = rng.Float64()
		ids[i] = i
	}
	tr := NewKDTree(xs, ys, ids, 8)

	minX, minY, maxX, maxY := 0.2, 0.3, 0.6, 0.7
	var want []int
	for i := range xs {
		if xs[i] >= minX && xs[i] <= maxX && ys[i] >= minY && ys[i] <= maxY {
			want = append(want, ids[i])
		}
	}

	got := tr.Range(minX, minY, maxX, maxY)
	sort.Ints(got)
	sort.Ints(want)
	if !equalIntSlices(got, want) {
		t.Errorf("Range returned %v, want %v", got, want)
	}
}

func TestKDTreeWithinMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n := 500
	xs := make([]float64, n)
	ys := make([]float64, n)
	ids := make([]int, n)
	for i := range xs {
		xs[i] = rng.Float64()
		ys[i] = rng.Float64()
		ids[i] = i
	}
	tr := NewKDTree(xs, ys, ids, 8)

	qx, qy, r := 0.5, 0.5, 0.15
	var want []int
	for i := range xs {
		if sqDist(xs[i], ys[i], qx, qy) <= r*r {
			want = append(want, ids[i])
		}
	}

	got := tr.Within(qx, qy, r)
	sort.Ints(got)
	sort.Ints(want)
	if !equalIntSlices(got, want) {
		t.Errorf("Within returned %v, want %v", got, want)
	}
}

func TestKDTreePreservesCallerIDs(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{0, 0, 0, 0}
	ids := []int{100, 200, 300, 400}
	tr := NewKDTree(xs, ys, ids, 2)

	got := tr.Range(-1, -1, 10, 10)
	sort.Ints(got)
	want := []int{100, 200, 300, 400}
	if !equalIntSlices(got, want) {
		t.Errorf("Range returned %v, want %v", got, want)
	}
}

func equalIntSlices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
