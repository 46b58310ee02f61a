// Package clusterio persists the point data loaded into a cluster engine
// (github.com/tcabral/clustopher/cluster) to disk, and restores it.
//
// It deliberately persists only the point slice, not the derived layer
// stack a Supercluster/MutableSupercluster builds from it: the layer
// stack is a pure function of the points and the Options used to build
// it, so reloading is Load(restoredPoints) against the same Options
// rather than deserializing KD-tree/R-tree internals directly.
package clusterio
