package cluster

// elementKind tags a layerElement as a leaf (a single input point that has
// never been absorbed) or a cluster (two or more elements merged together).
type elementKind uint8

const (
	kindLeaf elementKind = iota
	kindCluster
)

// layerElement is the tagged union §3 describes: every element of a Layer
// carries a projected centroid, a point count, a lowestZoom, and the two
// independent aggregation payloads; clusters additionally carry an id, an
// origin (the seed point's own coordinate, for stable rendering), and
// child references.
type layerElement struct {
	kind elementKind

	x, y      float64
	numPoints int

	// leaf-only
	leafIndex int // index into the Supercluster's borrowed points slice

	// id, originX/originY and children are cluster-only; lowestZoom,
	// aggregate and clusterData are set on leaves too
	id          denseID
	originX     float64
	originY     float64
	lowestZoom  int
	children    []int // indices into the finer layer's elements this cluster absorbed
	aggregate   interface{}
	clusterData ClusterData

	// shared: set once this element (leaf or cluster) has been absorbed
	// into a coarser cluster; zero value means "no parent yet" (it is
	// the coarsest surviving representation of itself).
	parent    denseID
	hasParent bool
}

// SpatialIndex is the query surface §4.2/§4.3 share: given a built index
// over a layer's projected centroids, return the ids of every element
// inside an axis-aligned box or within a radius of a point. KDTree
// implements it as a static index (immutable variant); RTree implements
// it as a bulk-loadable, incrementally mutable one (mutable variant).
type SpatialIndex interface {
	Range(minX, minY, maxX, maxY float64) []int
	Within(x, y, r float64) []int
}

// Layer is one zoom level's worth of elements plus the spatial index built
// over their projected centroids, and the clustering radius at this
// layer's own zoom, the one this layer was built with from the next finer
// layer (memoized since it depends only on zoom, Radius, and Extent).
type Layer struct {
	zoom     int
	elements []layerElement
	index    SpatialIndex
	r, r2    float64
}

// NumPoints returns the total input-point count spanned by this layer
// (every layer covers every input point exactly once, across leaves and
// cluster representatives — invariant 4).
func (l *Layer) NumPoints() int {
	total := 0
	for _, e := range l.elements {
		total += e.numPoints
	}
	return total
}

// Len returns the number of elements (leaves + clusters) in this layer.
func (l *Layer) Len() int {
	return len(l.elements)
}
