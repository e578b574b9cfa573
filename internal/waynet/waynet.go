// Package waynet holds the waypoint graph NPCs route over, plus the
// freepoints they can be sent to for local positioning.
package waynet

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"regoth/internal/daedalus/objects"
	"regoth/internal/daedalus/symbols"
	"regoth/internal/errs"
	"regoth/internal/geom"
	"regoth/internal/log"
)

// Waypoint is a named node of the waynet.
type Waypoint struct {
	Name      string
	Position  geom.Vec3
	Direction geom.Vec3
}

// Freepoint is a named spot outside the graph. At most one NPC occupies it.
type Freepoint struct {
	Name      string
	Position  geom.Vec3
	Direction geom.Vec3
	Occupant  objects.NativeHandle
}

// Waynet is an undirected graph of waypoints weighted by distance.
type Waynet struct {
	waypoints  map[string]*Waypoint
	freepoints map[string]*Freepoint
	graph      graph.Graph[string, string]
}

// New creates an empty waynet.
func New() *Waynet {
	return &Waynet{
		waypoints:  make(map[string]*Waypoint),
		freepoints: make(map[string]*Freepoint),
		graph:      graph.New(graph.StringHash, graph.Weighted()),
	}
}

func key(name string) string {
	return symbols.FoldName(strings.TrimSpace(name))
}

// AddWaypoint adds a node. Names are case-insensitive and unique.
func (w *Waynet) AddWaypoint(name string, position, direction geom.Vec3) error {
	k := key(name)
	if k == "" {
		return errs.InvalidParameters("waypoint without name")
	}
	if _, exists := w.waypoints[k]; exists {
		return errs.InvalidParameters("duplicate waypoint %s", k)
	}
	if err := w.graph.AddVertex(k); err != nil {
		return err
	}
	w.waypoints[k] = &Waypoint{Name: k, Position: position, Direction: direction}
	return nil
}

// Connect links two waypoints both ways. Connecting twice is a no-op.
func (w *Waynet) Connect(a, b string) error {
	wa, err := w.FindWaypointByName(a)
	if err != nil {
		return err
	}
	wb, err := w.FindWaypointByName(b)
	if err != nil {
		return err
	}
	if wa == wb {
		return nil
	}

	weight := int(math.Round(geom.Distance(wa.Position, wb.Position) * 100))
	err = w.graph.AddEdge(wa.Name, wb.Name, graph.EdgeWeight(weight))
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return err
	}
	return nil
}

// FindWaypointByName looks up a waypoint.
func (w *Waynet) FindWaypointByName(name string) (*Waypoint, error) {
	wp, ok := w.waypoints[key(name)]
	if !ok {
		return nil, errs.InvalidParameters("waypoint %q not found", name)
	}
	return wp, nil
}

// HasWaypoint reports whether name is a waypoint.
func (w *Waynet) HasWaypoint(name string) bool {
	_, ok := w.waypoints[key(name)]
	return ok
}

// FindClosestWaypointTo returns the waypoint nearest to position.
func (w *Waynet) FindClosestWaypointTo(position geom.Vec3) (*Waypoint, bool) {
	var best *Waypoint
	bestDist := math.Inf(1)
	for _, wp := range w.Waypoints() {
		if d := geom.SquaredDistance(wp.Position, position); d < bestDist {
			best, bestDist = wp, d
		}
	}
	return best, best != nil
}

// FindWay returns the shortest chain of waypoints from one waypoint to
// another, both included. It is empty when either end is unknown or no
// connection exists.
func (w *Waynet) FindWay(from, to string) []*Waypoint {
	a, b := key(from), key(to)
	if !w.HasWaypoint(a) || !w.HasWaypoint(b) {
		return nil
	}
	if a == b {
		return []*Waypoint{w.waypoints[a]}
	}

	path, err := graph.ShortestPath(w.graph, a, b)
	if err != nil {
		log.Debug("no way between waypoints", "from", a, "to", b, "error", err)
		return nil
	}

	way := make([]*Waypoint, 0, len(path))
	for _, name := range path {
		way = append(way, w.waypoints[name])
	}
	return way
}

// Waypoints returns every waypoint sorted by name.
func (w *Waynet) Waypoints() []*Waypoint {
	out := make([]*Waypoint, 0, len(w.waypoints))
	for _, wp := range w.waypoints {
		out = append(out, wp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Connections returns every edge once, as sorted name pairs.
func (w *Waynet) Connections() ([][2]string, error) {
	adjacency, err := w.graph.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	var out [][2]string
	for source, targets := range adjacency {
		for target := range targets {
			if source < target {
				out = append(out, [2]string{source, target})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out, nil
}

// AddFreepoint registers a freepoint.
func (w *Waynet) AddFreepoint(name string, position, direction geom.Vec3) error {
	k := key(name)
	if k == "" {
		return errs.InvalidParameters("freepoint without name")
	}
	if _, exists := w.freepoints[k]; exists {
		return errs.InvalidParameters("duplicate freepoint %s", k)
	}
	w.freepoints[k] = &Freepoint{Name: k, Position: position, Direction: direction}
	return nil
}

// FindFreepointByName looks up a freepoint.
func (w *Waynet) FindFreepointByName(name string) (*Freepoint, error) {
	fp, ok := w.freepoints[key(name)]
	if !ok {
		return nil, errs.InvalidParameters("freepoint %q not found", name)
	}
	return fp, nil
}

// Freepoints returns every freepoint sorted by name.
func (w *Waynet) Freepoints() []*Freepoint {
	out := make([]*Freepoint, 0, len(w.freepoints))
	for _, fp := range w.freepoints {
		out = append(out, fp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindFreepoint returns the closest free freepoint whose name contains tag,
// within maxDistance of near. A freepoint held by npc counts as free for it.
func (w *Waynet) FindFreepoint(tag string, near geom.Vec3, maxDistance float64, npc objects.NativeHandle) (*Freepoint, bool) {
	tag = key(tag)
	var best *Freepoint
	bestDist := maxDistance * maxDistance
	for _, fp := range w.Freepoints() {
		if !strings.Contains(fp.Name, tag) {
			continue
		}
		if fp.Occupant != objects.InvalidNativeHandle && fp.Occupant != npc {
			continue
		}
		if d := geom.SquaredDistance(fp.Position, near); d <= bestDist {
			best, bestDist = fp, d
		}
	}
	return best, best != nil
}

// Occupy reserves a freepoint for npc, releasing whatever it held before.
func (w *Waynet) Occupy(name string, npc objects.NativeHandle) error {
	fp, ok := w.freepoints[key(name)]
	if !ok {
		return errs.InvalidParameters("freepoint %q not found", name)
	}
	if fp.Occupant != objects.InvalidNativeHandle && fp.Occupant != npc {
		return errs.InvalidState("freepoint %s is occupied by %d", fp.Name, fp.Occupant)
	}
	w.Release(npc)
	fp.Occupant = npc
	return nil
}

// Release frees every freepoint held by npc.
func (w *Waynet) Release(npc objects.NativeHandle) {
	for _, fp := range w.freepoints {
		if fp.Occupant == npc {
			fp.Occupant = objects.InvalidNativeHandle
		}
	}
}
