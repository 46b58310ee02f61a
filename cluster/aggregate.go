package cluster

// AggregateFuncs attaches the map/reduce aggregation protocol (§4.6) to an
// Options[P]. Map is called for every point each time a leaf layer is
// built, to produce that leaf's aggregate payload: once per Load for
// Supercluster, and again for every live point on each Load, Add, Remove
// and ModifyPointData for MutableSupercluster, which does not keep
// payloads from earlier builds. Reduce folds a child's aggregate into a
// running accumulator every time a coarser cluster is formed; it must
// mutate acc in place and must not mutate other.
//
// Clone seeds a new cluster's aggregate from its first child without
// aliasing the child's own payload (the spec's "seed with a copy"
// requirement has no explicit clone callback, so one is added here). If
// Clone is nil, the engine reuses the child's aggregate value directly as
// the seed, which is only safe when the aggregate type is copied by value
// (a plain struct, not a pointer or map/slice the engine will later
// mutate through Reduce).
type AggregateFuncs[P any] struct {
	Map    func(P) (interface{}, error)
	Reduce func(acc, other interface{})
	Clone  func(interface{}) interface{}
}

// ClusterData is the monoid-style aggregation protocol: Combine merges two
// cluster-data values into a new one without mutating either operand,
// letting it be attached simultaneously with AggregateFuncs.
type ClusterData interface {
	Combine(other ClusterData) ClusterData
}
