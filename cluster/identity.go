package cluster

import "fmt"

// ClusterID identifies a cluster produced by either variant. It is opaque,
// comparable, and safe to use as a map key; callers round-trip it through
// GetChildren, GetLeaves, and GetClusterExpansionZoom without inspecting
// its contents. denseID is the only concrete representation: Supercluster
// builds a new Layer stack on every Load, and MutableSupercluster rebuilds
// its full Layer stack on every Load/Add/Remove/ModifyPointData (via
// rebuildLayers), so a
// cluster's (zoom, index) slot is only ever valid against the specific
// layer stack that produced it, not across mutations — callers should
// treat a ClusterID as stale once the engine that returned it mutates
// again.
type ClusterID interface {
	clusterID()
}

// denseID is a (zoom, index) pair addressing a slot in that zoom's
// Layer.elements, valid for the lifetime of the Layer stack that produced
// it.
type denseID struct {
	zoom  int
	index int
}

func (denseID) clusterID() {}

func (d denseID) String() string {
	return fmt.Sprintf("dense(%d,%d)", d.zoom, d.index)
}
