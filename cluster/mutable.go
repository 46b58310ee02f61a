package cluster

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// newRTreeIndex adapts BulkLoadRTree to the indexBuilder signature, so
// rebuildLayers produces R-tree-backed layers instead of the immutable
// variant's KD-tree-backed ones — per §4.5, the mutable variant replaces
// the per-layer KD-tree with an R-tree at every zoom, not only on the live
// point set.
func newRTreeIndex(xs, ys []float64, ids []int, nodeSize int) SpatialIndex {
	items := make([]RTreeItem, len(xs))
	for i := range xs {
		items[i] = RTreeItem{X: xs[i], Y: ys[i], ID: ids[i]}
	}
	return BulkLoadRTree(items, nodeSize)
}

// PointID identifies a point previously added to a MutableSupercluster. It
// is opaque and comparable, assigned by Add and stable across subsequent
// Add/Remove/ModifyPointData calls on other points.
type PointID struct {
	uuid string
}

// entry is one live point tracked by the mutable variant: its current
// payload plus the projected coordinates the R-tree indexes it under.
type entry[P any] struct {
	point P
	x, y  float64
}

// MutableSupercluster is the incrementally maintained hierarchical
// clusterer (§4.5): unlike Supercluster, it supports Add, Remove, and
// ModifyPointData after Load, at the cost of a heavier per-mutation
// recompute. Every layer it builds — leaf and clustered alike — is
// indexed by an RTree (the dynamic index, §4.3) rather than the static
// KDTree the immutable variant uses, via the newRTreeIndex builder passed
// into rebuildLayers; the clustered layer stack is recomputed from the
// current live set after every mutation, the same way Load builds it, so
// the two variants share buildLeafLayer/buildLayer/formCluster and differ
// only in which SpatialIndex those helpers build.
type MutableSupercluster[P any] struct {
	opts Options[P]

	entries  map[int]entry[P]
	idBySlot map[int]string
	slotByID map[string]int
	nextSlot int

	layers map[int]*Layer
	loaded bool
}

// NewMutableSupercluster constructs an unloaded mutable engine bound to
// point type P.
func NewMutableSupercluster[P any](opts Options[P], options ...Option[P]) *MutableSupercluster[P] {
	for _, o := range options {
		o(&opts)
	}
	return &MutableSupercluster[P]{opts: opts}
}

// Load bulk-loads the given points as the initial live set, the same way
// Supercluster.Load does, and builds the R-tree and layer stack over them.
// Any previously loaded state is discarded only if Load succeeds.
func (mc *MutableSupercluster[P]) Load(points []P) ([]PointID, error) {
	opts := mc.opts
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	entries := make(map[int]entry[P], len(points))
	idBySlot := make(map[int]string, len(points))
	slotByID := make(map[string]int, len(points))
	ids := make([]PointID, len(points))

	for i, p := range points {
		rawX, rawY := opts.GetX(p), opts.GetY(p)
		if !isFinite(rawX) || !isFinite(rawY) {
			return nil, invalidArgument("point %d has non-finite coordinates (%v, %v)", i, rawX, rawY)
		}
		px, py := opts.Projection.Project(rawX, rawY)
		u := uuid.New().String()
		entries[i] = entry[P]{point: p, x: px, y: py}
		idBySlot[i] = u
		slotByID[u] = i
		ids[i] = PointID{uuid: u}
	}

	layers, err := rebuildLayers(&opts, entries)
	if err != nil {
		return nil, err
	}

	mc.opts = opts
	mc.entries = entries
	mc.idBySlot = idBySlot
	mc.slotByID = slotByID
	mc.nextSlot = len(points)
	mc.layers = layers
	mc.loaded = true
	opts.log.Infow("loaded points", "count", len(points))
	return ids, nil
}

// rebuildLayers reconstructs the full clustered layer stack from the
// current live entry set, reusing the immutable variant's
// buildLeafLayer/buildLayer so both variants produce identical clustering
// behavior over the same point set.
func rebuildLayers[P any](opts *Options[P], entries map[int]entry[P]) (map[int]*Layer, error) {
	slots := sortedSlots(entries)
	points := make([]P, len(slots))
	for i, slot := range slots {
		points[i] = entries[slot].point
	}

	leaf, err := buildLeafLayer(opts, points, newRTreeIndex)
	if err != nil {
		return nil, err
	}

	layers := make(map[int]*Layer, opts.MaxZoom-opts.MinZoom+2)
	layers[opts.MaxZoom+1] = leaf

	cur := leaf
	for z := opts.MaxZoom; z >= opts.MinZoom; z-- {
		next, err := buildLayer(opts, cur, z, newRTreeIndex)
		if err != nil {
			return nil, err
		}
		layers[z] = next
		cur = next
	}
	return layers, nil
}

// mergeCandidates probes the current leaf layer's R-tree for elements
// within 2r of (x, y) — the padded-boundary range search §4.3 specifies
// for the dynamic index, used here to report potential merge targets for
// a point about to be inserted. It is diagnostic only: Add always
// recomputes the full layer stack via rebuildLayers regardless of what
// this returns, since only a complete rebuild can account for cascading
// absorption across every coarser zoom.
func (mc *MutableSupercluster[P]) mergeCandidates(x, y float64) []int {
	leaf, ok := mc.layers[mc.opts.MaxZoom+1]
	if !ok {
		return nil
	}
	rtree, ok := leaf.index.(*RTree)
	if !ok {
		return nil
	}
	r := mc.opts.Radius / (float64(mc.opts.Extent) * math.Pow(2, float64(mc.opts.MaxZoom)))
	box := Box{x, y, x, y}.ExpandBy(2 * r)
	return rtree.RangeBox(box)
}

// Add inserts a new point into the live set and returns its PointID.
func (mc *MutableSupercluster[P]) Add(p P) (PointID, error) {
	if !mc.loaded {
		return PointID{}, notLoaded("Add called before Load succeeded")
	}
	rawX, rawY := mc.opts.GetX(p), mc.opts.GetY(p)
	if !isFinite(rawX) || !isFinite(rawY) {
		return PointID{}, invalidArgument("point has non-finite coordinates (%v, %v)", rawX, rawY)
	}
	px, py := mc.opts.Projection.Project(rawX, rawY)

	if candidates := mc.mergeCandidates(px, py); len(candidates) > 0 {
		mc.opts.log.Debugw("point has potential merge candidates", "count", len(candidates))
	}

	slot := mc.nextSlot
	mc.nextSlot++
	u := uuid.New().String()

	entries := cloneEntries(mc.entries)
	entries[slot] = entry[P]{point: p, x: px, y: py}
	idBySlot := cloneIDBySlot(mc.idBySlot)
	idBySlot[slot] = u

	layers, err := rebuildLayers(&mc.opts, entries)
	if err != nil {
		return PointID{}, err
	}

	mc.entries = entries
	mc.idBySlot = idBySlot
	mc.slotByID[u] = slot
	mc.layers = layers
	return PointID{uuid: u}, nil
}

// Remove deletes the point identified by id from the live set. It returns
// false (and a nil error) if id is unknown.
func (mc *MutableSupercluster[P]) Remove(id PointID) (bool, error) {
	if !mc.loaded {
		return false, notLoaded("Remove called before Load succeeded")
	}
	slot, ok := mc.slotByID[id.uuid]
	if !ok {
		return false, nil
	}

	entries := cloneEntries(mc.entries)
	delete(entries, slot)
	idBySlot := cloneIDBySlot(mc.idBySlot)
	delete(idBySlot, slot)

	layers, err := rebuildLayers(&mc.opts, entries)
	if err != nil {
		return false, err
	}

	mc.entries = entries
	mc.idBySlot = idBySlot
	delete(mc.slotByID, id.uuid)
	mc.layers = layers
	return true, nil
}

// ModifyPointData replaces the payload (and, if its coordinates differ,
// position) of the point identified by id. It returns NotFound if id is
// unknown.
func (mc *MutableSupercluster[P]) ModifyPointData(id PointID, p P) error {
	if !mc.loaded {
		return notLoaded("ModifyPointData called before Load succeeded")
	}
	slot, ok := mc.slotByID[id.uuid]
	if !ok {
		return notFound("unknown point id %v", id.uuid)
	}

	rawX, rawY := mc.opts.GetX(p), mc.opts.GetY(p)
	if !isFinite(rawX) || !isFinite(rawY) {
		return invalidArgument("point has non-finite coordinates (%v, %v)", rawX, rawY)
	}
	px, py := mc.opts.Projection.Project(rawX, rawY)

	entries := cloneEntries(mc.entries)
	entries[slot] = entry[P]{point: p, x: px, y: py}

	layers, err := rebuildLayers(&mc.opts, entries)
	if err != nil {
		return err
	}

	mc.entries = entries
	mc.layers = layers
	return nil
}

// Contains reports whether id currently identifies a live point.
func (mc *MutableSupercluster[P]) Contains(id PointID) bool {
	if !mc.loaded {
		return false
	}
	_, ok := mc.slotByID[id.uuid]
	return ok
}

func cloneEntries[P any](m map[int]entry[P]) map[int]entry[P] {
	out := make(map[int]entry[P], len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneIDBySlot(m map[int]string) map[int]string {
	out := make(map[int]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// toResult mirrors Supercluster.toResult but also resolves a leaf's stable
// PointID: slots holds the same slot ordering currentPoints built its
// points slice from, so slots[el.leafIndex] recovers the original slot and
// idBySlot[slot] its assigned uuid.
func (mc *MutableSupercluster[P]) toResult(el layerElement, points []P, slots []int) Result[P] {
	x, y := mc.opts.Projection.Unproject(el.x, el.y)
	if el.kind == kindLeaf {
		pid := PointID{uuid: mc.idBySlot[slots[el.leafIndex]]}
		return Result[P]{X: x, Y: y, Point: points[el.leafIndex], PointIndex: el.leafIndex, PointID: pid}
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

// currentSlots returns the live entry set's slot keys in the ascending
// order currentPoints builds its points slice from, so a layerElement's
// leafIndex can be mapped back to the slot (and thus idBySlot entry) it
// was built from.
func (mc *MutableSupercluster[P]) currentSlots() []int {
	return sortedSlots(mc.entries)
}

func (mc *MutableSupercluster[P]) currentPoints() []P {
	slots := mc.currentSlots()
	points := make([]P, len(slots))
	for i, slot := range slots {
		points[i] = mc.entries[slot].point
	}
	return points
}

// sortedSlots returns an entry map's keys in ascending order, giving the
// points slice passed to buildLeafLayer a deterministic ordering so a
// layerElement's leafIndex means the same thing whether it was produced
// during rebuildLayers or resolved later via currentPoints.
func sortedSlots[P any](entries map[int]entry[P]) []int {
	slots := make([]int, 0, len(entries))
	for slot := range entries {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

// Search returns every leaf and top-level cluster representative visible
// within the given bounding box at the given zoom, the same contract as
// Supercluster.Search.
func (mc *MutableSupercluster[P]) Search(minX, minY, maxX, maxY float64, zoom int) ([]Result[P], error) {
	if !mc.loaded {
		return nil, notLoaded("Search called before Load succeeded")
	}
	z := clampInt(zoom, mc.opts.MinZoom, mc.opts.MaxZoom+1)
	layer := mc.layers[z]
	points := mc.currentPoints()
	slots := mc.currentSlots()

	seen := make(map[int]bool)
	var out []Result[P]
	for _, box := range splitAntimeridian(minX, minY, maxX, maxY) {
		px1, py1 := mc.opts.Projection.Project(box[0], box[1])
		px2, py2 := mc.opts.Projection.Project(box[2], box[3])
		qMinX, qMaxX := minMax(px1, px2)
		qMinY, qMaxY := minMax(py1, py2)
		for _, id := range layer.index.Range(qMinX, qMinY, qMaxX, qMaxY) {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, mc.toResult(layer.elements[id], points, slots))
		}
	}
	return out, nil
}

// GetChildren returns the direct children of the cluster identified by id.
func (mc *MutableSupercluster[P]) GetChildren(id ClusterID) ([]Result[P], error) {
	if !mc.loaded {
		return nil, notLoaded("GetChildren called before Load succeeded")
	}
	d, ok := id.(denseID)
	if !ok {
		return nil, notFound("unknown cluster id %v", id)
	}
	layer, ok := mc.layers[d.zoom]
	if !ok || d.index < 0 || d.index >= len(layer.elements) || layer.elements[d.index].kind != kindCluster {
		return nil, notFound("unknown cluster id %v", id)
	}
	el := layer.elements[d.index]
	childLayer, ok := mc.layers[el.lowestZoom+1]
	if !ok {
		return nil, nil
	}
	points := mc.currentPoints()
	slots := mc.currentSlots()
	out := make([]Result[P], 0, len(el.children))
	for _, ci := range el.children {
		out = append(out, mc.toResult(childLayer.elements[ci], points, slots))
	}
	return out, nil
}

// GetLeaves returns up to limit original points contained in the cluster
// identified by id, with the same pagination contract as
// Supercluster.GetLeaves.
func (mc *MutableSupercluster[P]) GetLeaves(id ClusterID, limit, offset int) ([]P, error) {
	if !mc.loaded {
		return nil, notLoaded("GetLeaves called before Load succeeded")
	}
	d, ok := id.(denseID)
	if !ok {
		return nil, notFound("unknown cluster id %v", id)
	}
	layer, ok := mc.layers[d.zoom]
	if !ok || d.index < 0 || d.index >= len(layer.elements) || layer.elements[d.index].kind != kindCluster {
		return nil, notFound("unknown cluster id %v", id)
	}
	points := mc.currentPoints()

	var collected []P
	skipped := 0
	var walk func(zoom, idx int) bool
	walk = func(zoom, idx int) bool {
		el := mc.layers[zoom].elements[idx]
		if el.kind == kindLeaf {
			if skipped < offset {
				skipped++
				return false
			}
			collected = append(collected, points[el.leafIndex])
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
// cluster identified by id stops revealing a single child chain, the same
// contract as Supercluster.GetClusterExpansionZoom.
func (mc *MutableSupercluster[P]) GetClusterExpansionZoom(id ClusterID) (int, error) {
	if !mc.loaded {
		return 0, notLoaded("GetClusterExpansionZoom called before Load succeeded")
	}
	d, ok := id.(denseID)
	if !ok {
		return 0, notFound("unknown cluster id %v", id)
	}
	zoom, idx := d.zoom, d.index
	for zoom <= mc.opts.MaxZoom {
		layer, ok := mc.layers[zoom]
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
	return mc.opts.MaxZoom + 1, nil
}

// Close drops the engine's references to its live points and layers.
func (mc *MutableSupercluster[P]) Close() {
	mc.entries = nil
	mc.idBySlot = nil
	mc.slotByID = nil
	mc.layers = nil
	mc.loaded = false
}
