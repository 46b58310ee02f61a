package cluster

import (
	"math"
	"testing"
)

type geoPoint struct {
	Lng, Lat float64
	Name     string
}

func geoOpts() Options[geoPoint] {
	return Options[geoPoint]{
		GetX: func(p geoPoint) float64 { return p.Lng },
		GetY: func(p geoPoint) float64 { return p.Lat },
	}
}

func TestLoadEmpty(t *testing.T) {
	sc := NewSupercluster(geoOpts())
	if err := sc.Load(nil); err != nil {
		t.Fatalf("Load(nil) returned error: %v", err)
	}
	if sc.NumPoints() != 0 {
		t.Errorf("NumPoints() = %d, want 0", sc.NumPoints())
	}
	results, err := sc.Search(-180, -90, 180, 90, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search on empty engine returned %d results, want 0", len(results))
	}
}

func TestLoadSinglePoint(t *testing.T) {
	sc := NewSupercluster(geoOpts())
	pts := []geoPoint{{Lng: 10, Lat: 20, Name: "a"}}
	if err := sc.Load(pts); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	results, err := sc.Search(-180, -90, 180, 90, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search returned %d results, want 1", len(results))
	}
	if results[0].IsCluster {
		t.Errorf("single point returned as cluster")
	}
	if math.Abs(results[0].X-10) > 1e-9 || math.Abs(results[0].Y-20) > 1e-9 {
		t.Errorf("X/Y = (%v, %v), want (10, 20)", results[0].X, results[0].Y)
	}
}

func TestRejectsNonFiniteCoordinates(t *testing.T) {
	sc := NewSupercluster(geoOpts())
	pts := []geoPoint{{Lng: math.NaN(), Lat: 0}}
	err := sc.Load(pts)
	if err == nil {
		t.Fatal("Load with NaN coordinate returned nil error")
	}
	if !IsInvalidArgument(err) {
		t.Errorf("error kind = %v, want InvalidArgument", err)
	}
}

func TestQueriesBeforeLoadReturnNotLoaded(t *testing.T) {
	sc := NewSupercluster(geoOpts())
	if _, err := sc.Search(-180, -90, 180, 90, 0); !IsNotLoaded(err) {
		t.Errorf("Search before Load: got %v, want NotLoaded", err)
	}
	if _, err := sc.GetChildren(denseID{}); !IsNotLoaded(err) {
		t.Errorf("GetChildren before Load: got %v, want NotLoaded", err)
	}
	if _, err := sc.GetLeaves(denseID{}, 0, 0); !IsNotLoaded(err) {
		t.Errorf("GetLeaves before Load: got %v, want NotLoaded", err)
	}
	if _, err := sc.GetClusterExpansionZoom(denseID{}); !IsNotLoaded(err) {
		t.Errorf("GetClusterExpansionZoom before Load: got %v, want NotLoaded", err)
	}
}

// TestTwoOfThreeCluster is the canonical clustering scenario: two points
// close enough together to cluster, a third far enough away to stay a
// leaf, at a zoom coarse enough that the radius spans the first two but
// not the third.
func TestTwoOfThreeCluster(t *testing.T) {
	opts := geoOpts()
	opts.MinPoints = 2
	sc := NewSupercluster(opts)
	pts := []geoPoint{
		{Lng: 0, Lat: 0, Name: "a"},
		{Lng: 0.001, Lat: 0.001, Name: "b"},
		{Lng: 40, Lat: 40, Name: "c"},
	}
	if err := sc.Load(pts); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	results, err := sc.Search(-180, -90, 180, 90, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search at zoom 0 returned %d results, want 2 (one cluster, one leaf)", len(results))
	}

	var clusters, leaves int
	for _, r := range results {
		if r.IsCluster {
			clusters++
			if r.NumPoints != 2 {
				t.Errorf("cluster NumPoints = %d, want 2", r.NumPoints)
			}
		} else {
			leaves++
		}
	}
	if clusters != 1 || leaves != 1 {
		t.Errorf("got %d clusters and %d leaves, want 1 and 1", clusters, leaves)
	}

	// at max zoom, all three points should appear unclustered
	fine, err := sc.Search(-180, -90, 180, 90, 20)
	if err != nil {
		t.Fatalf("Search at max zoom returned error: %v", err)
	}
	if len(fine) != 3 {
		t.Errorf("Search at max zoom returned %d results, want 3", len(fine))
	}
}

// TestGetChildrenAndGetLeaves exercises drill-down from a formed cluster
// back to its constituent points.
func TestGetChildrenAndGetLeaves(t *testing.T) {
	opts := geoOpts()
	opts.MinPoints = 2
	sc := NewSupercluster(opts)
	pts := []geoPoint{
		{Lng: 0, Lat: 0, Name: "a"},
		{Lng: 0.001, Lat: 0.001, Name: "b"},
		{Lng: 40, Lat: 40, Name: "c"},
	}
	if err := sc.Load(pts); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	results, err := sc.Search(-180, -90, 180, 90, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	var clusterID ClusterID
	for _, r := range results {
		if r.IsCluster {
			clusterID = r.ID
		}
	}
	if clusterID == nil {
		t.Fatal("no cluster found at zoom 0")
	}

	children, err := sc.GetChildren(clusterID)
	if err != nil {
		t.Fatalf("GetChildren returned error: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("GetChildren returned %d children, want 2", len(children))
	}

	leaves, err := sc.GetLeaves(clusterID, 0, 0)
	if err != nil {
		t.Fatalf("GetLeaves returned error: %v", err)
	}
	if len(leaves) != 2 {
		t.Fatalf("GetLeaves returned %d leaves, want 2", len(leaves))
	}
	names := map[string]bool{}
	for _, p := range leaves {
		names[p.Name] = true
	}
	if !names["a"] || !names["b"] {
		t.Errorf("GetLeaves returned %v, want a and b", leaves)
	}
}

func TestGetLeavesPagination(t *testing.T) {
	opts := geoOpts()
	opts.MinPoints = 2
	opts.Radius = 1000
	sc := NewSupercluster(opts)
	pts := make([]geoPoint, 10)
	for i := range pts {
		pts[i] = geoPoint{Lng: float64(i) * 0.0001, Lat: float64(i) * 0.0001, Name: string(rune('a' + i))}
	}
	if err := sc.Load(pts); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	results, err := sc.Search(-180, -90, 180, 90, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 || !results[0].IsCluster {
		t.Fatalf("expected a single cluster of 10 points, got %d results", len(results))
	}
	id := results[0].ID

	page1, err := sc.GetLeaves(id, 4, 0)
	if err != nil {
		t.Fatalf("GetLeaves page1 returned error: %v", err)
	}
	if len(page1) != 4 {
		t.Fatalf("page1 length = %d, want 4", len(page1))
	}
	page2, err := sc.GetLeaves(id, 4, 4)
	if err != nil {
		t.Fatalf("GetLeaves page2 returned error: %v", err)
	}
	if len(page2) != 4 {
		t.Fatalf("page2 length = %d, want 4", len(page2))
	}
	rest, err := sc.GetLeaves(id, 0, 8)
	if err != nil {
		t.Fatalf("GetLeaves rest returned error: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("rest length = %d, want 2", len(rest))
	}

	seen := map[string]bool{}
	for _, p := range append(append(page1, page2...), rest...) {
		if seen[p.Name] {
			t.Errorf("point %s returned twice across pages", p.Name)
		}
		seen[p.Name] = true
	}
	if len(seen) != 10 {
		t.Errorf("pagination covered %d distinct points, want 10", len(seen))
	}
}

// TestGetClusterExpansionZoomIdenticalCoordinates covers the degenerate
// case where every point shares the same coordinate: the cluster should
// never "expand" since it can never spatially separate, and expansion
// zoom should cap at MaxZoom+1.
func TestGetClusterExpansionZoomIdenticalCoordinates(t *testing.T) {
	opts := geoOpts()
	opts.MinPoints = 2
	opts.MaxZoom = 10
	sc := NewSupercluster(opts)
	pts := make([]geoPoint, 5)
	for i := range pts {
		pts[i] = geoPoint{Lng: 5, Lat: 5}
	}
	if err := sc.Load(pts); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	results, err := sc.Search(-180, -90, 180, 90, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 || !results[0].IsCluster {
		t.Fatalf("expected a single cluster, got %d results", len(results))
	}

	zoom, err := sc.GetClusterExpansionZoom(results[0].ID)
	if err != nil {
		t.Fatalf("GetClusterExpansionZoom returned error: %v", err)
	}
	if zoom != opts.MaxZoom+1 {
		t.Errorf("expansion zoom = %d, want %d (identical coordinates never separate)", zoom, opts.MaxZoom+1)
	}
}

// TestGetClusterExpansionZoomSeparates covers the normal case: a cluster
// whose members are close at coarse zoom but far enough apart to separate
// by some finer zoom.
func TestGetClusterExpansionZoomSeparates(t *testing.T) {
	opts := geoOpts()
	opts.MinPoints = 2
	opts.MaxZoom = 16
	sc := NewSupercluster(opts)
	pts := []geoPoint{
		{Lng: 0, Lat: 0},
		{Lng: 0.01, Lat: 0.01},
	}
	if err := sc.Load(pts); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	results, err := sc.Search(-180, -90, 180, 90, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 || !results[0].IsCluster {
		t.Fatalf("expected a single cluster at zoom 0, got %d results", len(results))
	}

	zoom, err := sc.GetClusterExpansionZoom(results[0].ID)
	if err != nil {
		t.Fatalf("GetClusterExpansionZoom returned error: %v", err)
	}
	if zoom <= 0 || zoom > opts.MaxZoom+1 {
		t.Errorf("expansion zoom = %d, want a value in (0, %d]", zoom, opts.MaxZoom+1)
	}
}

// TestAggregateSumAndCount covers the map/reduce scenario: Map seeds a
// per-leaf (sum, count) pair, Reduce folds children into a cluster's
// running total.
type sumCount struct {
	Sum   float64
	Count int
}

func TestAggregateSumAndCount(t *testing.T) {
	opts := geoOpts()
	opts.MinPoints = 2
	opts.Aggregate = &AggregateFuncs[geoPoint]{
		Map: func(p geoPoint) (interface{}, error) {
			return &sumCount{Sum: 1, Count: 1}, nil
		},
		Reduce: func(acc, other interface{}) {
			a := acc.(*sumCount)
			o := other.(*sumCount)
			a.Sum += o.Sum
			a.Count += o.Count
		},
		Clone: func(v interface{}) interface{} {
			o := v.(*sumCount)
			clone := *o
			return &clone
		},
	}
	sc := NewSupercluster(opts)
	pts := []geoPoint{
		{Lng: 0, Lat: 0},
		{Lng: 0.001, Lat: 0.001},
		{Lng: 0.002, Lat: 0.002},
	}
	if err := sc.Load(pts); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	results, err := sc.Search(-180, -90, 180, 90, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 || !results[0].IsCluster {
		t.Fatalf("expected a single cluster, got %d results", len(results))
	}
	agg := results[0].Aggregate.(*sumCount)
	if agg.Count != 3 {
		t.Errorf("aggregate Count = %d, want 3", agg.Count)
	}
	if agg.Sum != 3 {
		t.Errorf("aggregate Sum = %v, want 3", agg.Sum)
	}
}

// TestClusterDataCombine covers the monoid-style ClusterData protocol
// independently of AggregateFuncs.
type tagSet struct {
	tags map[string]bool
}

func (t tagSet) Combine(other ClusterData) ClusterData {
	o := other.(tagSet)
	merged := map[string]bool{}
	for k := range t.tags {
		merged[k] = true
	}
	for k := range o.tags {
		merged[k] = true
	}
	return tagSet{tags: merged}
}

func TestClusterDataCombine(t *testing.T) {
	opts := geoOpts()
	opts.MinPoints = 2
	opts.ExtractClusterData = func(p geoPoint) (ClusterData, error) {
		return tagSet{tags: map[string]bool{p.Name: true}}, nil
	}
	sc := NewSupercluster(opts)
	pts := []geoPoint{
		{Lng: 0, Lat: 0, Name: "red"},
		{Lng: 0.001, Lat: 0.001, Name: "blue"},
	}
	if err := sc.Load(pts); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	results, err := sc.Search(-180, -90, 180, 90, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 || !results[0].IsCluster {
		t.Fatalf("expected a single cluster, got %d results", len(results))
	}
	ts := results[0].ClusterData.(tagSet)
	if !ts.tags["red"] || !ts.tags["blue"] {
		t.Errorf("combined tags = %v, want red and blue", ts.tags)
	}
}

// TestNumPointsInvariant checks invariant 4: every layer's total NumPoints
// equals the original input count.
func TestNumPointsInvariant(t *testing.T) {
	opts := geoOpts()
	sc := NewSupercluster(opts)
	pts := make([]geoPoint, 50)
	for i := range pts {
		pts[i] = geoPoint{Lng: float64(i%10) * 2, Lat: float64(i/10) * 2}
	}
	if err := sc.Load(pts); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	for z := opts.MinZoom; z <= opts.MaxZoom+1; z++ {
		if got := sc.PointsAtZoom(z); got != len(pts) {
			t.Errorf("PointsAtZoom(%d) = %d, want %d", z, got, len(pts))
		}
	}
}

// TestAntimeridianSearch covers a bounding box that wraps past +/-180
// longitude.
func TestAntimeridianSearch(t *testing.T) {
	sc := NewSupercluster(geoOpts())
	pts := []geoPoint{
		{Lng: 179, Lat: 0, Name: "east"},
		{Lng: -179, Lat: 0, Name: "west"},
		{Lng: 0, Lat: 0, Name: "middle"},
	}
	if err := sc.Load(pts); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	results, err := sc.Search(170, -10, -170, 10, 20)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("antimeridian search returned %d results, want 2 (east and west)", len(results))
	}
	var names []string
	for _, r := range results {
		names = append(names, r.Point.Name)
	}
	found := map[string]bool{names[0]: true, names[1]: true}
	if !found["east"] || !found["west"] {
		t.Errorf("antimeridian search returned %v, want east and west", names)
	}
}

func TestCloseResetsState(t *testing.T) {
	sc := NewSupercluster(geoOpts())
	if err := sc.Load([]geoPoint{{Lng: 1, Lat: 1}}); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	sc.Close()
	if sc.NumPoints() != 0 {
		t.Errorf("NumPoints() after Close = %d, want 0", sc.NumPoints())
	}
	if _, err := sc.Search(-180, -90, 180, 90, 0); !IsNotLoaded(err) {
		t.Errorf("Search after Close: got %v, want NotLoaded", err)
	}
}

func TestInvalidOptionsRejected(t *testing.T) {
	cases := []struct {
		name string
		opts Options[geoPoint]
	}{
		{"missing GetX", Options[geoPoint]{GetY: func(p geoPoint) float64 { return p.Lat }}},
		{"missing GetY", Options[geoPoint]{GetX: func(p geoPoint) float64 { return p.Lng }}},
		{"MinZoom greater than MaxZoom", Options[geoPoint]{GetX: geoOpts().GetX, GetY: geoOpts().GetY, MinZoom: 10, MaxZoom: 5}},
		{"negative radius", Options[geoPoint]{GetX: geoOpts().GetX, GetY: geoOpts().GetY, Radius: -1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sc := NewSupercluster(c.opts)
			err := sc.Load([]geoPoint{{Lng: 1, Lat: 1}})
			if err == nil {
				t.Fatalf("Load with %s returned nil error", c.name)
			}
			if !IsInvalidArgument(err) {
				t.Errorf("error kind = %v, want InvalidArgument", err)
			}
		})
	}
}
