package scheduler

import (
	"github.com/l1jgo/navcore/internal/core/ecs"
	"github.com/l1jgo/navcore/internal/world"
)

// Priority orders requests within a tick. Higher values dispatch first.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	}
	return "unknown"
}

// ParsePriority maps a priority name back to its value.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "low":
		return PriorityLow, true
	case "normal", "":
		return PriorityNormal, true
	case "high":
		return PriorityHigh, true
	case "critical":
		return PriorityCritical, true
	}
	return PriorityNormal, false
}

// RequestID identifies one submitted request.
type RequestID uint64

// Counter hands out request ids. It wraps from 2^64-1 back to 0.
type Counter struct {
	next uint64
}

// NewCounter returns a counter whose first id is start.
func NewCounter(start uint64) Counter { return Counter{next: start} }

// Next returns the current id and advances, wrapping on overflow.
func (c *Counter) Next() RequestID {
	id := c.next
	c.next++
	return RequestID(id)
}

// RequestState is where a request sits in its lifecycle.
type RequestState uint8

const (
	StateUnknown RequestState = iota // never issued, or already polled or discarded
	StateRequested
	StateDispatched
	StateResolved
)

func (s RequestState) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateDispatched:
		return "dispatched"
	case StateResolved:
		return "resolved"
	}
	return "unknown"
}

// PathRequest asks for a route for an agent of Size (body diameter in cells).
type PathRequest struct {
	Start    world.Vec2
	Goal     world.Vec2
	Size     float64
	Priority Priority
	// Owner is the requesting entity. Zero means unowned and never orphaned.
	Owner ecs.EntityID
}

// PathResult is delivered once per request.
type PathResult struct {
	ID        RequestID
	Owner     ecs.EntityID
	Start     world.Vec2
	Goal      world.Vec2
	Size      float64
	Waypoints []world.Vec2 // nil when not found
	Found     bool
	FromCache bool
	// Truncated is set when the search was cancelled or hit its expansion cap.
	Truncated bool
}
