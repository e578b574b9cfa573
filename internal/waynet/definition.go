package waynet

import (
	"fmt"

	"regoth/internal/geom"
)

// PointDefinition is the file form of a waypoint or freepoint.
type PointDefinition struct {
	Name      string    `yaml:"name"`
	Position  geom.Vec3 `yaml:"position"`
	Direction geom.Vec3 `yaml:"direction"`
}

// Definition is the file form of a waynet.
type Definition struct {
	Waypoints   []PointDefinition `yaml:"waypoints"`
	Connections [][2]string       `yaml:"connections"`
	Freepoints  []PointDefinition `yaml:"freepoints"`
}

// FromDefinition builds a waynet from its file form.
func FromDefinition(def Definition) (*Waynet, error) {
	w := New()
	for _, wp := range def.Waypoints {
		if err := w.AddWaypoint(wp.Name, wp.Position, wp.Direction); err != nil {
			return nil, err
		}
	}
	for _, c := range def.Connections {
		if err := w.Connect(c[0], c[1]); err != nil {
			return nil, fmt.Errorf("connect %s-%s: %w", c[0], c[1], err)
		}
	}
	for _, fp := range def.Freepoints {
		if err := w.AddFreepoint(fp.Name, fp.Position, fp.Direction); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Definition returns the file form of w.
func (w *Waynet) Definition() (Definition, error) {
	var def Definition
	for _, wp := range w.Waypoints() {
		def.Waypoints = append(def.Waypoints, PointDefinition{Name: wp.Name, Position: wp.Position, Direction: wp.Direction})
	}
	connections, err := w.Connections()
	if err != nil {
		return def, err
	}
	def.Connections = connections
	for _, fp := range w.Freepoints() {
		def.Freepoints = append(def.Freepoints, PointDefinition{Name: fp.Name, Position: fp.Position, Direction: fp.Direction})
	}
	return def, nil
}
