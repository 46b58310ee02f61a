package cluster

import "go.uber.org/zap"

// Options binds the engine to a caller-owned point type P and configures
// clustering behavior. Supercluster keeps the slice Load borrows without
// copying it; MutableSupercluster stores its own copy of every P value
// passed to Load, Add or ModifyPointData.
type Options[P any] struct {
	// GetX and GetY extract a point's native (unprojected) coordinates.
	// Required.
	GetX func(P) float64
	GetY func(P) float64

	// Projection maps native coordinates into [0, 1]^2 and back. Defaults
	// to WebMercator.
	Projection Projection

	// MinZoom is the coarsest zoom the engine clusters at. Defaults to 0.
	MinZoom int
	// MaxZoom is the finest zoom the engine clusters at; above this,
	// Search returns unclustered leaves. Defaults to 16, capped at 16.
	MaxZoom int
	// Radius is the clustering radius in pixels of a tile Extent pixels
	// wide. Defaults to 40.
	Radius float64
	// Extent is the tile extent used to convert Radius into projected
	// units. Defaults to 512.
	Extent int
	// MinPoints is the minimum combined point count required to form a
	// cluster instead of leaving candidates as separate leaves. Defaults
	// to 2.
	MinPoints int
	// NodeSize is the KD-tree/R-tree leaf block size. Defaults to 64.
	NodeSize int

	// Aggregate, if non-nil, attaches the map/reduce aggregation
	// protocol (§4.6).
	Aggregate *AggregateFuncs[P]
	// ExtractClusterData, if non-nil, attaches the monoid-style
	// extract/combine aggregation protocol (§4.6), independent of and
	// usable alongside Aggregate.
	ExtractClusterData func(P) (ClusterData, error)

	log *zap.SugaredLogger
}

// Option configures a Supercluster or MutableSupercluster beyond the
// required Options fields, following the functional-option convention the
// rest of the pack uses for long-lived components.
type Option[P any] func(*Options[P])

// WithLogger injects a diagnostic logger. A nil logger is equivalent to
// not calling WithLogger at all (zap.NewNop() is used).
func WithLogger[P any](log *zap.SugaredLogger) Option[P] {
	return func(o *Options[P]) {
		o.log = log
	}
}

func (o *Options[P]) applyDefaults() {
	if o.Projection == nil {
		o.Projection = WebMercator{}
	}
	if o.MaxZoom == 0 {
		o.MaxZoom = 16
	}
	if o.MaxZoom > 16 {
		o.MaxZoom = 16
	}
	if o.Extent == 0 {
		o.Extent = 512
	}
	if o.Radius == 0 {
		o.Radius = 40
	}
	if o.MinPoints == 0 {
		o.MinPoints = 2
	}
	if o.NodeSize == 0 {
		o.NodeSize = 64
	}
	if o.log == nil {
		o.log = zap.NewNop().Sugar()
	}
}

func (o *Options[P]) validate() error {
	if o.GetX == nil || o.GetY == nil {
		return invalidArgument("GetX and GetY are required")
	}
	if o.MinZoom < 0 {
		return invalidArgument("MinZoom must be >= 0, got %d", o.MinZoom)
	}
	if o.MinZoom > o.MaxZoom {
		return invalidArgument("MinZoom (%d) must be <= MaxZoom (%d)", o.MinZoom, o.MaxZoom)
	}
	if o.Radius <= 0 {
		return invalidArgument("Radius must be > 0, got %v", o.Radius)
	}
	if o.Extent <= 0 {
		return invalidArgument("Extent must be > 0, got %d", o.Extent)
	}
	if o.MinPoints < 1 {
		return invalidArgument("MinPoints must be >= 1, got %d", o.MinPoints)
	}
	if o.NodeSize < 1 {
		return invalidArgument("NodeSize must be >= 1, got %d", o.NodeSize)
	}
	return nil
}
