// Package cluster implements a two-dimensional hierarchical point-clustering
// engine for interactive map rendering.
//
// Points are projected into the unit square and clustered greedily, zoom by
// zoom, from the finest configured zoom down to the coarsest, producing a
// stack of layers that a viewport query (Search) or drill-down query
// (GetChildren, GetLeaves, GetClusterExpansionZoom) can address directly.
// Supercluster is the immutable variant, built once by Load and queried many
// times; MutableSupercluster additionally supports Add, Remove, and
// ModifyPointData after Load.
package cluster
