package cluster

import (
	"math"
)

// Supercluster is the immutable hierarchical clusterer (§4.4): built once
// by Load from a caller-owned point slice, queried many times by Search,
// GetChildren, GetLeaves, and GetClusterExpansionZoom. It performs no I/O
// and is safe for concurrent read-only queries once Load has returned.
type Supercluster[P any] struct {
	opts   Options[P]
	points []P // borrowed from the caller's Load argument, never copied
	layers map[int]*Layer
	loaded bool
}

// NewSupercluster constructs an unloaded engine bound to point type P.
// Construction parameters are validated and defaulted on the first Load
// call, not here, so zero-value Options{GetX: ..., GetY: ...} is valid
// input.
func NewSupercluster[P any](opts Options[P], options ...Option[P]) *Supercluster[P] {
	for _, o := range options {
		o(&opts)
	}
	return &Supercluster[P]{opts: opts}
}

// Load projects, then clusters, the given points into a stack of layers
// from MaxZoom+1 (unclustered leaves) down to MinZoom. Any failure —
// invalid options, a callback returning an error — leaves the engine's
// prior state (if any) unchanged.
func (sc *Supercluster[P]) Load(points []P) error {
	opts := sc.opts
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return err
	}

	leaf, err := buildLeafLayer(&opts, points, newKDTreeIndex)
	if err != nil {
		return err
	}

	layers := make(map[int]*Layer, opts.MaxZoom-opts.MinZoom+2)
	layers[opts.MaxZoom+1] = leaf

	cur := leaf
	for z := opts.MaxZoom; z >= opts.MinZoom; z-- {
		next, err := buildLayer(&opts, cur, z, newKDTreeIndex)
		if err != nil {
			return err
		}
		layers[z] = next
		cur = next
	}

	sc.opts = opts
	sc.points = points
	sc.layers = layers
	sc.loaded = true
	opts.log.Infow("loaded points", "count", len(points), "layers", len(layers), "minZoom", opts.MinZoom, "maxZoom", opts.MaxZoom)
	return nil
}

// indexBuilder constructs the SpatialIndex a Layer indexes its elements
// with. The immutable variant always builds a KDTree (newKDTreeIndex); the
// mutable variant builds an RTree instead (newRTreeIndex, in mutable.go),
// so every layer it builds — leaf and clustered alike — is R-tree backed,
// per §4.5's "replaces the per-layer KD-tree with an R-tree."
type indexBuilder func(xs, ys []float64, ids []int, nodeSize int) SpatialIndex

func newKDTreeIndex(xs, ys []float64, ids []int, nodeSize int) SpatialIndex {
	return NewKDTree(xs, ys, ids, nodeSize)
}

func buildLeafLayer[P any](opts *Options[P], points []P, newIndex indexBuilder) (*Layer, error) {
	n := len(points)
	elems := make([]layerElement, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	ids := make([]int, n)

	for i, p := range points {
		rawX, rawY := opts.GetX(p), opts.GetY(p)
		if !isFinite(rawX) || !isFinite(rawY) {
			return nil, invalidArgument("point %d has non-finite coordinates (%v, %v)", i, rawX, rawY)
		}
		px, py := opts.Projection.Project(rawX, rawY)

		el := layerElement{
			kind:       kindLeaf,
			x:          px,
			y:          py,
			leafIndex:  i,
			numPoints:  1,
			lowestZoom: opts.MaxZoom + 1,
		}
		if opts.Aggregate != nil {
			agg, err := opts.Aggregate.Map(p)
			if err != nil {
				return nil, callbackContract("MapPointToProperties failed for point %d: %v", i, err)
			}
			el.aggregate = agg
		}
		if opts.ExtractClusterData != nil {
			data, err := opts.ExtractClusterData(p)
			if err != nil {
				return nil, callbackContract("ExtractClusterData failed for point %d: %v", i, err)
			}
			el.clusterData = data
		}
		elems[i] = el
		xs[i], ys[i] = px, py
		ids[i] = i
	}

	zoom := opts.MaxZoom + 1
	r := opts.Radius / (float64(opts.Extent) * math.Pow(2, float64(zoom)))
	idx := newIndex(xs, ys, ids, opts.NodeSize)
	return &Layer{zoom: zoom, elements: elems, index: idx, r: r, r2: r * r}, nil
}

// buildLayer clusters one zoom level's elements from the next-finer
// layer's elements, following §4.4's procedure: visit each finer element
// in index order, skipping ones already absorbed; gather neighbours
// within this zoom's radius that are also unabsorbed; if at least one
// neighbour was found and the combined count meets MinPoints, form a
// cluster and mark every member absorbed, otherwise promote the element
// unchanged (a promoted cluster keeps its id and formation zoom).
func buildLayer[P any](opts *Options[P], finer *Layer, zoom int, newIndex indexBuilder) (*Layer, error) {
	r := opts.Radius / (float64(opts.Extent) * math.Pow(2, float64(zoom)))
	r2 := r * r

	used := make([]bool, len(finer.elements))
	out := make([]layerElement, 0, len(finer.elements))

	for i := range finer.elements {
		if used[i] {
			continue
		}
		used[i] = true
		e := finer.elements[i]

		candidates := finer.index.Within(e.x, e.y, r)
		var members []int
		total := e.numPoints
		for _, ci := range candidates {
			if ci == i || used[ci] {
				continue
			}
			c := finer.elements[ci]
			if sqDist(e.x, e.y, c.x, c.y) > r2 {
				continue
			}
			members = append(members, ci)
			total += c.numPoints
		}

		if len(members) == 0 || total < opts.MinPoints {
			out = append(out, e)
			continue
		}

		for _, mi := range members {
			used[mi] = true
		}
		allMembers := append([]int{i}, members...)
		cluster, err := formCluster(opts, finer, allMembers, zoom, len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, cluster)
	}

	xs := make([]float64, len(out))
	ys := make([]float64, len(out))
	ids := make([]int, len(out))
	for i, el := range out {
		xs[i], ys[i] = el.x, el.y
		ids[i] = i
	}
	idx := newIndex(xs, ys, ids, opts.NodeSize)
	return &Layer{zoom: zoom, elements: out, index: idx, r: r, r2: r2}, nil
}

func formCluster[P any](opts *Options[P], finer *Layer, members []int, zoom, outIndex int) (layerElement, error) {
	var sumX, sumY float64
	numPoints := 0
	for _, mi := range members {
		c := finer.elements[mi]
		w := float64(c.numPoints)
		sumX += c.x * w
		sumY += c.y * w
		numPoints += c.numPoints
	}
	seed := finer.elements[members[0]]
	id := denseID{zoom: zoom, index: outIndex}

	cluster := layerElement{
		kind:       kindCluster,
		x:          sumX / float64(numPoints),
		y:          sumY / float64(numPoints),
		originX:    seed.x,
		originY:    seed.y,
		numPoints:  numPoints,
		lowestZoom: zoom,
		id:         id,
		children:   append([]int(nil), members...),
	}

	if opts.Aggregate != nil {
		cluster.aggregate = cloneAggregate(opts.Aggregate, seed.aggregate)
		for _, mi := range members[1:] {
			opts.Aggregate.Reduce(cluster.aggregate, finer.elements[mi].aggregate)
		}
	}
	if opts.ExtractClusterData != nil && seed.clusterData != nil {
		data := seed.clusterData
		for _, mi := range members[1:] {
			other := finer.elements[mi].clusterData
			if other == nil {
				continue
			}
			data = data.Combine(other)
		}
		cluster.clusterData = data
	}

	for _, mi := range members {
		finer.elements[mi].parent = id
		finer.elements[mi].hasParent = true
		if finer.elements[mi].kind == kindLeaf {
			finer.elements[mi].lowestZoom = zoom + 1
		}
	}
	return cluster, nil
}

func cloneAggregate[P any](agg *AggregateFuncs[P], v interface{}) interface{} {
	if agg.Clone != nil {
		return agg.Clone(v)
	}
	return v
}

// Result is one element of a Search or GetChildren response:
// either a cluster (IsCluster true) or a leaf wrapping the original input
// point at its original index.
type Result[P any] struct {
	IsCluster bool
	X, Y      float64 // unprojected, in the caller's native coordinate space

	ID          ClusterID
	NumPoints   int
	ClusterData ClusterData
	Aggregate   interface{}

	Point      P
	PointIndex int

	// PointID is the stable identifier Add/Load returned for this leaf,
	// set only by MutableSupercluster; the zero value on every result from
	// Supercluster, and on every cluster result from either variant.
	PointID PointID
}

func (sc *Supercluster[P]) toResult(el layerElement) Result[P] {
	x, y := sc.opts.Projection.Unproject(el.x, el.y)
	if el.kind == kindLeaf {
		return Result[P]{X: x, Y: y, Point: sc.points[el.leafIndex], PointIndex: el.leafIndex}
	}
	return Result[P]{
		IsCluster:   true,
		X:           x,
		Y:           y,
		ID:          el.id,
		NumPoints:   el.numPoints,
		ClusterData: el.clusterData,
		Aggregate:   el.aggregate,
	}
}

// Search returns every leaf and top-level cluster representative visible
// within the given bounding box at the given zoom, in the caller's native
// coordinate space. A box that spans the antimeridian (minX > maxX) is
// split and queried as two boxes, with duplicate results suppressed.
func (sc *Supercluster[P]) Search(minX, minY, maxX, maxY float64, zoom int) ([]Result[P], error) {
	if !sc.loaded {
		return nil, notLoaded("Search called before Load succeeded")
	}
	z := clampInt(zoom, sc.opts.MinZoom, sc.opts.MaxZoom+1)
	layer := sc.layers[z]

	seen := make(map[int]bool)
	var out []Result[P]
	for _, box := range splitAntimeridian(minX, minY, maxX, maxY) {
		px1, py1 := sc.opts.Projection.Project(box[0], box[1])
		px2, py2 := sc.opts.Projection.Project(box[2], box[3])
		qMinX, qMaxX := minMax(px1, px2)
		qMinY, qMaxY := minMax(py1, py2)
		for _, id := range layer.index.Range(qMinX, qMinY, qMaxX, qMaxY) {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, sc.toResult(layer.elements[id]))
		}
	}
	return out, nil
}

// GetChildren returns the direct children (leaves or sub-clusters) of the
// cluster identified by id, at zoom id.lowestZoom+1.
func (sc *Supercluster[P]) GetChildren(id ClusterID) ([]Result[P], error) {
	if !sc.loaded {
		return nil, notLoaded("GetChildren called before Load succeeded")
	}
	el, ok := sc.resolve(id)
	if !ok || el.kind != kindCluster {
		return nil, notFound("unknown cluster id %v", id)
	}
	childLayer, ok := sc.layers[el.lowestZoom+1]
	if !ok {
		return nil, nil
	}
	out := make([]Result[P], 0, len(el.children))
	for _, ci := range el.children {
		out = append(out, sc.toResult(childLayer.elements[ci]))
	}
	return out, nil
}

// GetLeaves returns up to limit original input points contained in the
// cluster identified by id, skipping the first offset leaves in traversal
// order. limit <= 0 means unlimited.
func (sc *Supercluster[P]) GetLeaves(id ClusterID, limit, offset int) ([]P, error) {
	if !sc.loaded {
		return nil, notLoaded("GetLeaves called before Load succeeded")
	}
	d, ok := id.(denseID)
	if !ok {
		return nil, notFound("unknown cluster id %v", id)
	}
	layer, ok := sc.layers[d.zoom]
	if !ok || d.index < 0 || d.index >= len(layer.elements) || layer.elements[d.index].kind != kindCluster {
		return nil, notFound("unknown cluster id %v", id)
	}

	var collected []P
	skipped := 0
	var walk func(zoom, idx int) bool
	walk = func(zoom, idx int) bool {
		el := sc.layers[zoom].elements[idx]
		if el.kind == kindLeaf {
			if skipped < offset {
				skipped++
				return false
			}
			collected = append(collected, sc.points[el.leafIndex])
			return limit > 0 && len(collected) >= limit
		}
		for _, ci := range el.children {
			if walk(el.lowestZoom+1, ci) {
				return true
			}
		}
		return false
	}
	walk(d.zoom, d.index)
	return collected, nil
}

// GetClusterExpansionZoom returns the smallest zoom at which expanding the
// cluster identified by id stops revealing a single child chain — i.e. the
// zoom a caller should jump to for this cluster to visibly separate.
func (sc *Supercluster[P]) GetClusterExpansionZoom(id ClusterID) (int, error) {
	if !sc.loaded {
		return 0, notLoaded("GetClusterExpansionZoom called before Load succeeded")
	}
	d, ok := id.(denseID)
	if !ok {
		return 0, notFound("unknown cluster id %v", id)
	}
	zoom, idx := d.zoom, d.index
	for zoom <= sc.opts.MaxZoom {
		layer, ok := sc.layers[zoom]
		if !ok || idx < 0 || idx >= len(layer.elements) {
			return 0, notFound("unknown cluster id %v", id)
		}
		el := layer.elements[idx]
		if el.kind != kindCluster {
			return zoom, nil
		}
		zoom++
		if len(el.children) != 1 {
			return zoom, nil
		}
		idx = el.children[0]
	}
	return sc.opts.MaxZoom + 1, nil
}

func (sc *Supercluster[P]) resolve(id ClusterID) (layerElement, bool) {
	d, ok := id.(denseID)
	if !ok {
		return layerElement{}, false
	}
	layer, ok := sc.layers[d.zoom]
	if !ok || d.index < 0 || d.index >= len(layer.elements) {
		return layerElement{}, false
	}
	return layer.elements[d.index], true
}

// Points returns the engine's currently loaded point slice, borrowed
// (not copied) from the argument passed to Load. Callers needing to
// persist the engine's contents (clusterio) should serialize this slice
// and the Options used to build it, then reconstruct via NewSupercluster
// + Load rather than trying to serialize the derived layer stack, which
// is a pure function of the two.
func (sc *Supercluster[P]) Points() []P {
	if !sc.loaded {
		return nil
	}
	return sc.points
}

// NumPoints returns the total number of input points currently loaded.
func (sc *Supercluster[P]) NumPoints() int {
	if !sc.loaded {
		return 0
	}
	return len(sc.points)
}

// PointsAtZoom returns the total point count spanned by the layer at the
// given zoom (every layer covers every input point exactly once).
func (sc *Supercluster[P]) PointsAtZoom(zoom int) int {
	if !sc.loaded {
		return 0
	}
	layer, ok := sc.layers[clampInt(zoom, sc.opts.MinZoom, sc.opts.MaxZoom+1)]
	if !ok {
		return 0
	}
	return layer.NumPoints()
}

// Close drops the engine's references to its loaded layers and points,
// matching the teacher's CleanupCluster teardown convention (§5's
// ownership note: the engine borrows the caller's slice and never retains
// it beyond Close/the next Load).
func (sc *Supercluster[P]) Close() {
	sc.layers = nil
	sc.points = nil
	sc.loaded = false
}
