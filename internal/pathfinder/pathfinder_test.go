package pathfinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regoth/internal/daedalus/objects"
	"regoth/internal/geom"
	"regoth/internal/physics"
	"regoth/internal/waynet"
)

// B(0,10) --- C(10,10)
//   |            |
// A(0,0)  |wall| D(10,0)
func square(t *testing.T, connectD bool) *waynet.Waynet {
	w := waynet.New()
	require.NoError(t, w.AddWaypoint("A", geom.V(0, 0, 0), geom.Vec3{}))
	require.NoError(t, w.AddWaypoint("B", geom.V(0, 0, 10), geom.Vec3{}))
	require.NoError(t, w.AddWaypoint("C", geom.V(10, 0, 10), geom.Vec3{}))
	require.NoError(t, w.AddWaypoint("D", geom.V(10, 0, 0), geom.Vec3{}))
	require.NoError(t, w.Connect("A", "B"))
	require.NoError(t, w.Connect("B", "C"))
	if connectD {
		require.NoError(t, w.Connect("C", "D"))
	}
	return w
}

func wall() *physics.World {
	return physics.NewWorld(physics.Box{Name: "wall", Min: geom.V(4, -1, -5), Max: geom.V(6, 3, 3)})
}

func TestReachIsReflexiveAndSymmetric(t *testing.T) {
	p := New(DefaultConfig(), nil, nil, nil)
	points := []geom.Vec3{
		geom.V(0, 0, 0), geom.V(0.3, 0, 0.3), geom.V(0.49, 1.9, 0), geom.V(0.5, 0, 0),
		geom.V(0, 2, 0), geom.V(0, -1.99, 0), geom.V(3, 0, 4),
	}
	for _, a := range points {
		assert.True(t, p.IsTargetReachedByPosition(a, a))
		for _, b := range points {
			assert.Equal(t, p.IsTargetReachedByPosition(a, b), p.IsTargetReachedByPosition(b, a), "%v %v", a, b)
		}
	}
	assert.True(t, p.IsTargetReachedByPosition(geom.V(0, 0, 0), geom.V(0.49, 1.9, 0)))
	assert.False(t, p.IsTargetReachedByPosition(geom.V(0, 0, 0), geom.V(0.5, 0, 0)))
	assert.False(t, p.IsTargetReachedByPosition(geom.V(0, 0, 0), geom.V(0, 2, 0)))
}

func TestDirectRouteCompletes(t *testing.T) {
	p := New(DefaultConfig(), square(t, true), wall(), nil)
	now, target := geom.V(0, 0, 0), geom.V(0, 0, 8)

	p.StartNewRouteToPosition(now, target)
	assert.Equal(t, []geom.Vec3{target}, p.Route().Points)

	next := p.UpdateToNextInstructionToTarget(now)
	assert.True(t, p.IsTargetReachedByPosition(next, target))
	assert.False(t, p.HasActiveRouteBeenCompleted(now))

	assert.Equal(t, next, p.UpdateToNextInstructionToTarget(next))
	assert.True(t, p.HasActiveRouteBeenCompleted(next))
}

func TestAlreadyAtTarget(t *testing.T) {
	p := New(DefaultConfig(), nil, nil, nil)
	now := geom.V(1, 0, 1)
	p.StartNewRouteToPosition(now, geom.V(1.2, 0.5, 1))
	assert.Empty(t, p.Route().Points)
	assert.True(t, p.HasActiveRouteBeenCompleted(now))
	assert.Equal(t, now, p.UpdateToNextInstructionToTarget(now))
}

func TestRouteAroundWall(t *testing.T) {
	p := New(DefaultConfig(), square(t, true), wall(), nil)
	now := geom.V(0, 0, 0)
	p.StartNewRouteToPosition(now, geom.V(10, 0, 0))
	require.False(t, p.IsTargetUnreachable())
	assert.Equal(t, []geom.Vec3{geom.V(0, 0, 0), geom.V(0, 0, 10), geom.V(10, 0, 10), geom.V(10, 0, 0)}, p.Route().Points,
		"last waypoint reaches the target so it is not appended")

	var visited []geom.Vec3
	for i := 0; i < 10 && !p.HasActiveRouteBeenCompleted(now); i++ {
		now = p.UpdateToNextInstructionToTarget(now)
		visited = append(visited, now)
	}
	assert.Equal(t, []geom.Vec3{geom.V(0, 0, 10), geom.V(10, 0, 10), geom.V(10, 0, 0), geom.V(10, 0, 0)}, visited)
	assert.True(t, p.HasActiveRouteBeenCompleted(now))
}

func TestOffGraphTargetIsAppended(t *testing.T) {
	p := New(DefaultConfig(), square(t, true), wall(), nil)
	target := geom.V(12, 0, -2)
	p.StartNewRouteToPosition(geom.V(0, 0, 0), target)

	points := p.Route().Points
	require.NotEmpty(t, points)
	assert.Equal(t, target, points[len(points)-1])
	assert.Equal(t, geom.V(10, 0, 0), points[len(points)-2])
}

func TestUnreachableIsSticky(t *testing.T) {
	p := New(DefaultConfig(), square(t, false), wall(), nil)
	now := geom.V(0, 0, 0)
	p.StartNewRouteToPosition(now, geom.V(10, 0, 0))

	assert.True(t, p.IsTargetUnreachable())
	assert.True(t, p.HasActiveRouteBeenCompleted(now))
	assert.Equal(t, now, p.UpdateToNextInstructionToTarget(now))
	assert.True(t, p.IsTargetUnreachable())

	p.StartNewRouteToPosition(now, geom.V(0, 0, 5))
	assert.False(t, p.IsTargetUnreachable(), "a new route clears the flag")
}

func TestCleanupRouteIsIdempotent(t *testing.T) {
	p := New(DefaultConfig(), nil, wall(), nil)
	points := []geom.Vec3{
		geom.V(0, 0, 0),
		geom.V(0.1, 0, 0), // coincides with predecessor
		geom.V(0, 0, 10),
		geom.V(0, 0, 12), // detour: neighbours coincide
		geom.V(0.2, 0, 10),
		geom.V(2, 0, 10), // local shortcut
		geom.V(10, 0, 10),
		geom.V(10, 0, 0),
		geom.V(0, 0, -4),
	}
	once := p.CleanupRoute(points)
	assert.Equal(t, points[0], once[0])
	assert.Equal(t, points[len(points)-1], once[len(once)-1])
	assert.Less(t, len(once), len(points))
	assert.Equal(t, once, p.CleanupRoute(once))
	assert.Contains(t, once, geom.V(10, 0, 0), "far point with a blocked shortcut stays")
}

func TestEntityTarget(t *testing.T) {
	positions := map[objects.NativeHandle]geom.Vec3{7: geom.V(0, 0, 8)}
	locate := func(h objects.NativeHandle) (geom.Vec3, bool) {
		pos, ok := positions[h]
		return pos, ok
	}
	p := New(DefaultConfig(), square(t, true), wall(), locate)
	now := geom.V(0, 0, 0)

	p.StartNewRouteToEntity(now, 7)
	assert.Empty(t, p.Route().Points, "direct line: no points, steer to the entity")
	assert.Equal(t, geom.V(0, 0, 8), p.UpdateToNextInstructionToTarget(now))

	positions[7] = geom.V(0, 0, 9)
	assert.Equal(t, geom.V(0, 0, 9), p.UpdateToNextInstructionToTarget(now), "live position is followed")

	// the entity walks behind the wall, beyond the reroute distance
	positions[7] = geom.V(10, 0, 0)
	next := p.UpdateToNextInstructionToTarget(now)
	route := p.Route()
	assert.Equal(t, geom.V(10, 0, 0), route.LastKnownEntityPosition)
	assert.NotEmpty(t, route.Points)
	assert.Equal(t, geom.V(0, 0, 10), next)

	positions[7] = geom.V(0.2, 0, 0.2)
	assert.Equal(t, now, p.UpdateToNextInstructionToTarget(now))

	delete(positions, 7)
	p.StartNewRouteToEntity(now, 7)
	assert.True(t, p.IsTargetUnreachable())
}
