// Package pathfinder computes routes over the waynet and follows them one
// tick at a time, towards either a fixed position or a moving entity.
package pathfinder

import (
	"log/slog"

	"regoth/internal/daedalus/objects"
	"regoth/internal/geom"
	"regoth/internal/log"
	"regoth/internal/waynet"
)

// Waynet is the part of the waypoint graph routing needs.
type Waynet interface {
	FindClosestWaypointTo(position geom.Vec3) (*waynet.Waypoint, bool)
	FindWay(from, to string) []*waynet.Waypoint
}

// RayCaster reports the distance to the first obstacle along a ray.
type RayCaster interface {
	RayCast(from, to geom.Vec3) (hit bool, distance float64)
}

// EntityLocator returns the live position of a native object.
type EntityLocator func(entity objects.NativeHandle) (geom.Vec3, bool)

// Config holds the reach and routing thresholds, in meters.
type Config struct {
	ReachRadius     float64
	ReachHeight     float64
	CleanupDistance float64
	RerouteDistance float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ReachRadius:     0.5,
		ReachHeight:     2.0,
		CleanupDistance: 5.0,
		RerouteDistance: 5.0,
	}
}

// Route is the state of the route being followed.
type Route struct {
	Points []geom.Vec3

	TargetEntity            objects.NativeHandle
	TargetPosition          geom.Vec3
	LastKnownEntityPosition geom.Vec3

	IsTargetUnreachable bool
}

// Pathfinder follows one route for one actor.
type Pathfinder struct {
	cfg     Config
	waynet  Waynet
	physics RayCaster
	locate  EntityLocator

	route Route
	log   *slog.Logger
}

// New creates a pathfinder. physics and locate may be nil: without physics
// every straight line is free, without locate entity targets are unreachable.
func New(cfg Config, wn Waynet, physics RayCaster, locate EntityLocator) *Pathfinder {
	return &Pathfinder{
		cfg:     cfg,
		waynet:  wn,
		physics: physics,
		locate:  locate,
		log:     log.With("pathfinder"),
	}
}

// Route returns a copy of the current route.
func (p *Pathfinder) Route() Route {
	r := p.route
	r.Points = append([]geom.Vec3(nil), p.route.Points...)
	return r
}

// IsTargetUnreachable reports whether the last routing attempt failed.
func (p *Pathfinder) IsTargetUnreachable() bool {
	return p.route.IsTargetUnreachable
}

// IsTargetReachedByPosition reports whether a and b are close enough to
// count as the same spot. It is symmetric.
func (p *Pathfinder) IsTargetReachedByPosition(a, b geom.Vec3) bool {
	lateral := geom.Distance(a.Horizontal(), b.Horizontal())
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return lateral < p.cfg.ReachRadius && dy < p.cfg.ReachHeight
}

// IsDirectlyReachable reports whether nothing blocks the straight line from
// one point to the other.
func (p *Pathfinder) IsDirectlyReachable(from, to geom.Vec3) bool {
	if p.physics == nil {
		return true
	}
	hit, distance := p.physics.RayCast(from, to)
	return !hit || distance > geom.Distance(from, to)
}

func (p *Pathfinder) entityPosition() (geom.Vec3, bool) {
	if p.locate == nil {
		return geom.Vec3{}, false
	}
	return p.locate(p.route.TargetEntity)
}

// StartNewRouteToPosition discards the current route and routes to target.
func (p *Pathfinder) StartNewRouteToPosition(now, target geom.Vec3) {
	p.route = Route{TargetPosition: target}

	switch {
	case p.IsTargetReachedByPosition(now, target):
	case p.IsDirectlyReachable(now, target):
		p.route.Points = []geom.Vec3{target}
	default:
		points, ok := p.findWaynetRoute(now, target)
		if !ok {
			p.markUnreachable(now, target)
			return
		}
		if len(points) == 0 || !p.IsTargetReachedByPosition(points[len(points)-1], target) {
			points = append(points, target)
		}
		p.route.Points = points
		p.cleanupRoute()
	}
}

// StartNewRouteToEntity discards the current route and routes to a moving
// entity. The entity itself is never part of the point list; once the
// points are used up the live entity position is steered to.
func (p *Pathfinder) StartNewRouteToEntity(now geom.Vec3, entity objects.NativeHandle) {
	p.route = Route{TargetEntity: entity}

	target, ok := p.entityPosition()
	if !ok {
		p.markUnreachable(now, geom.Vec3{})
		return
	}
	p.route.TargetPosition = target
	p.route.LastKnownEntityPosition = target

	if p.IsTargetReachedByPosition(now, target) || p.IsDirectlyReachable(now, target) {
		return
	}

	points, ok := p.findWaynetRoute(now, target)
	if !ok {
		p.markUnreachable(now, target)
		return
	}
	p.route.Points = points
	p.cleanupRoute()
}

func (p *Pathfinder) findWaynetRoute(now, target geom.Vec3) ([]geom.Vec3, bool) {
	if p.waynet == nil {
		return nil, false
	}
	from, ok := p.waynet.FindClosestWaypointTo(now)
	if !ok {
		return nil, false
	}
	to, ok := p.waynet.FindClosestWaypointTo(target)
	if !ok {
		return nil, false
	}

	way := p.waynet.FindWay(from.Name, to.Name)
	if len(way) == 0 {
		return nil, false
	}
	points := make([]geom.Vec3, 0, len(way)+1)
	for _, wp := range way {
		points = append(points, wp.Position)
	}
	return points, true
}

func (p *Pathfinder) markUnreachable(now, target geom.Vec3) {
	p.route.Points = nil
	p.route.IsTargetUnreachable = true
	p.log.Warn("target unreachable", "from", now, "to", target, "entity", p.route.TargetEntity)
}

// HasActiveRouteBeenCompleted reports whether there is nothing left to walk.
// An unreachable target counts as completed.
func (p *Pathfinder) HasActiveRouteBeenCompleted(now geom.Vec3) bool {
	if p.route.IsTargetUnreachable {
		return true
	}
	if len(p.route.Points) > 0 {
		return false
	}
	if p.route.TargetEntity != objects.InvalidNativeHandle {
		target, ok := p.entityPosition()
		return !ok || p.IsTargetReachedByPosition(now, target)
	}
	return true
}

// UpdateToNextInstructionToTarget advances the route for an actor standing
// at now and returns the position to steer to. now itself is returned once
// the route is complete.
func (p *Pathfinder) UpdateToNextInstructionToTarget(now geom.Vec3) geom.Vec3 {
	if p.route.IsTargetUnreachable {
		return now
	}

	if len(p.route.Points) > 0 && p.IsTargetReachedByPosition(now, p.route.Points[0]) {
		p.route.Points = p.route.Points[1:]
	}

	if p.HasActiveRouteBeenCompleted(now) {
		return now
	}

	if p.shouldReRoute(now) {
		p.StartNewRouteToEntity(now, p.route.TargetEntity)
		if len(p.route.Points) > 0 && p.IsTargetReachedByPosition(now, p.route.Points[0]) {
			p.route.Points = p.route.Points[1:]
		}
		if p.HasActiveRouteBeenCompleted(now) {
			return now
		}
	}

	if p.route.TargetEntity != objects.InvalidNativeHandle {
		live, ok := p.entityPosition()
		if !ok {
			p.markUnreachable(now, p.route.LastKnownEntityPosition)
			return now
		}
		if len(p.route.Points) == 0 || p.IsDirectlyReachable(now, live) {
			p.route.Points = nil
			return live
		}
	}
	return p.route.Points[0]
}

// shouldReRoute only applies to entity targets: it fires when the entity is
// out of sight with no points left, or when it moved too far from where it
// was when the route was computed.
func (p *Pathfinder) shouldReRoute(now geom.Vec3) bool {
	if p.route.TargetEntity == objects.InvalidNativeHandle || p.route.IsTargetUnreachable {
		return false
	}
	live, ok := p.entityPosition()
	if !ok {
		return false
	}
	if len(p.route.Points) == 0 && !p.IsDirectlyReachable(now, live) {
		return true
	}
	limit := p.cfg.RerouteDistance * p.cfg.RerouteDistance
	return geom.SquaredDistance(live, p.route.LastKnownEntityPosition) > limit
}

// cleanupRoute removes interior points that are redundant, until a full pass
// removes nothing.
func (p *Pathfinder) cleanupRoute() {
	p.route.Points = p.CleanupRoute(p.route.Points)
}

// CleanupRoute returns points without redundant interior points. A point is
// dropped when it coincides with a neighbour, when its neighbours coincide
// (a detour), or when its neighbours see each other and it lies within the
// cleanup distance of its predecessor. The first and last points are kept.
func (p *Pathfinder) CleanupRoute(points []geom.Vec3) []geom.Vec3 {
	out := append([]geom.Vec3(nil), points...)
	for {
		removed := false
		for i := 1; i < len(out)-1; i++ {
			prev, cur, next := out[i-1], out[i], out[i+1]
			if p.IsTargetReachedByPosition(prev, cur) ||
				p.IsTargetReachedByPosition(cur, next) ||
				p.IsTargetReachedByPosition(prev, next) ||
				(geom.Distance(prev, cur) < p.cfg.CleanupDistance && p.IsDirectlyReachable(prev, next)) {
				out = append(out[:i], out[i+1:]...)
				removed = true
				i--
			}
		}
		if !removed {
			return out
		}
	}
}
