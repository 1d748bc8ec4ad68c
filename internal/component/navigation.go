package component

import (
	"github.com/l1jgo/navcore/internal/scheduler"
	"github.com/l1jgo/navcore/internal/world"
)

// Position is an entity's world-space location.
type Position struct {
	world.Vec2
}

// Agent holds the physical traits that shape an entity's paths.
type Agent struct {
	Size     float64 // body diameter in cells
	Speed    float64 // world units per second
	Priority scheduler.Priority
}

// NavState tracks a navigator through one goal.
type NavState uint8

const (
	NavIdle      NavState = iota
	NavWantPath           // goal set, request not yet submitted
	NavWaiting            // request submitted, no result yet
	NavFollowing          // walking the path
	NavFailed             // no route to the goal
)

// Navigator carries an entity's goal and the path it is following.
type Navigator struct {
	Goal    world.Vec2
	State   NavState
	Request scheduler.RequestID
	Path    []world.Vec2
	Next    int // index of the next waypoint in Path
}

// SetGoal asks for a new path on the next navigation pass.
func (n *Navigator) SetGoal(goal world.Vec2) {
	n.Goal = goal
	n.State = NavWantPath
	n.Path = nil
	n.Next = 0
}

// Follow installs a resolved path.
func (n *Navigator) Follow(path []world.Vec2) {
	n.Path = path
	n.Next = 0
	if len(path) == 0 {
		n.State = NavFailed
		return
	}
	n.State = NavFollowing
}

// Waypoint returns the next waypoint to walk to.
func (n *Navigator) Waypoint() (world.Vec2, bool) {
	if n.State != NavFollowing || n.Next >= len(n.Path) {
		return world.Vec2{}, false
	}
	return n.Path[n.Next], true
}
