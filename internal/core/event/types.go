package event

import "github.com/l1jgo/navcore/internal/core/ecs"

// PathResolved is emitted when a navigating entity receives its path result.
type PathResolved struct {
	EntityID  ecs.EntityID
	RequestID uint64
	Found     bool
	FromCache bool
	Waypoints int
}

// TerrainSynced is emitted after a batch of terrain edits reached the path cache.
type TerrainSynced struct {
	Cells   int
	Version uint64
}

// NavigatorArrived is emitted when an entity consumes the last waypoint of its path.
type NavigatorArrived struct {
	EntityID ecs.EntityID
}
