package waynet

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"regoth/internal/daedalus/symbols"
	"regoth/internal/errs"
	"regoth/internal/geom"
)

// A - B - C
// |       |
// D ----- E      F (isolated)
func sample(t *testing.T) *Waynet {
	w := New()
	points := map[string]geom.Vec3{
		"A": geom.V(0, 0, 0),
		"B": geom.V(10, 0, 0),
		"C": geom.V(20, 0, 0),
		"D": geom.V(0, 0, 40),
		"E": geom.V(20, 0, 30),
		"F": geom.V(100, 0, 100),
	}
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		require.NoError(t, w.AddWaypoint(name, points[name], geom.Vec3{}))
	}
	for _, c := range [][2]string{{"A", "B"}, {"B", "C"}, {"A", "D"}, {"D", "E"}, {"C", "E"}} {
		require.NoError(t, w.Connect(c[0], c[1]))
	}
	return w
}

func names(way []*Waypoint) []string {
	var out []string
	for _, wp := range way {
		out = append(out, wp.Name)
	}
	return out
}

func TestFindWayTakesShortestPath(t *testing.T) {
	w := sample(t)
	assert.Equal(t, []string{"A", "B", "C", "E"}, names(w.FindWay("a", "e")))
	assert.Equal(t, []string{"D", "A", "B"}, names(w.FindWay("D", "B")))
	assert.Equal(t, []string{"C"}, names(w.FindWay("C", "C")))
}

func TestFindWayUnreachable(t *testing.T) {
	w := sample(t)
	assert.Empty(t, w.FindWay("A", "F"))
	assert.Empty(t, w.FindWay("A", "NOWHERE"))
}

func TestFindClosestWaypoint(t *testing.T) {
	w := sample(t)
	wp, ok := w.FindClosestWaypointTo(geom.V(18, 5, 2))
	require.True(t, ok)
	assert.Equal(t, "C", wp.Name)

	_, ok = New().FindClosestWaypointTo(geom.Vec3{})
	assert.False(t, ok)
}

func TestWaypointErrors(t *testing.T) {
	w := sample(t)
	assert.True(t, errors.Is(w.AddWaypoint("a", geom.Vec3{}, geom.Vec3{}), errs.ErrInvalidParameters))
	assert.True(t, errors.Is(w.Connect("A", "Z"), errs.ErrInvalidParameters))
	assert.NoError(t, w.Connect("B", "A"), "reconnecting is a no-op")
	_, err := w.FindWaypointByName("Z")
	assert.True(t, errors.Is(err, errs.ErrInvalidParameters))
}

func TestFreepoints(t *testing.T) {
	w := New()
	require.NoError(t, w.AddFreepoint("FP_ROAM_01", geom.V(0, 0, 0), geom.Vec3{}))
	require.NoError(t, w.AddFreepoint("FP_ROAM_02", geom.V(3, 0, 0), geom.Vec3{}))
	require.NoError(t, w.AddFreepoint("FP_SIT_01", geom.V(1, 0, 0), geom.Vec3{}))

	fp, ok := w.FindFreepoint("roam", geom.V(1, 0, 0), 10, 1)
	require.True(t, ok)
	assert.Equal(t, "FP_ROAM_01", fp.Name)

	require.NoError(t, w.Occupy("FP_ROAM_01", 1))
	fp, ok = w.FindFreepoint("ROAM", geom.V(1, 0, 0), 10, 2)
	require.True(t, ok)
	assert.Equal(t, "FP_ROAM_02", fp.Name)

	fp, ok = w.FindFreepoint("ROAM", geom.V(1, 0, 0), 10, 1)
	require.True(t, ok)
	assert.Equal(t, "FP_ROAM_01", fp.Name, "own freepoint stays available")

	assert.True(t, errors.Is(w.Occupy("FP_ROAM_01", 2), errs.ErrInvalidState))

	_, ok = w.FindFreepoint("ROAM", geom.V(50, 0, 0), 10, 2)
	assert.False(t, ok)

	require.NoError(t, w.Occupy("FP_SIT_01", 1))
	fp, ok = w.FindFreepoint("ROAM", geom.V(0, 0, 0), 10, 2)
	require.True(t, ok)
	assert.Equal(t, "FP_ROAM_01", fp.Name, "moving to another freepoint releases the first")
}

func TestDefinitionYAML(t *testing.T) {
	src := `
waypoints:
  - name: ocr_hut
    position: {x: 0, y: 0, z: 0}
  - name: ocr_square
    position: {x: 4, y: 0, z: 3}
connections:
  - [ocr_hut, ocr_square]
freepoints:
  - name: fp_stand_square
    position: {x: 5, y: 0, z: 3}
`
	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(src), &def))
	w, err := FromDefinition(def)
	require.NoError(t, err)

	assert.Equal(t, []string{"OCR_HUT", "OCR_SQUARE"}, names(w.FindWay("OCR_HUT", "OCR_SQUARE")))
	assert.Len(t, w.Freepoints(), 1)

	back, err := w.Definition()
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"OCR_HUT", "OCR_SQUARE"}}, back.Connections)

	def.Connections = append(def.Connections, [2]string{"OCR_HUT", "MISSING"})
	_, err = FromDefinition(def)
	assert.True(t, errors.Is(err, errs.ErrInvalidParameters))
}

func TestRenderDOT(t *testing.T) {
	w := sample(t)
	var buf bytes.Buffer
	require.NoError(t, w.Render(context.Background(), &buf, RenderOptions{Format: FormatDOT, Highlight: []string{"A", "B"}}))
	out := buf.String()
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "yellow")
	assert.Contains(t, out, "pos")
}

func TestNamesFoldLikeSymbols(t *testing.T) {
	w := New()
	require.NoError(t, w.AddWaypoint("WP_Straße", geom.V(1, 0, 0), geom.Vec3{}))
	require.NoError(t, w.AddFreepoint("fp_größe_01", geom.V(2, 0, 0), geom.Vec3{}))

	wp, err := w.FindWaypointByName("wp_strasse")
	require.NoError(t, err)
	assert.Equal(t, symbols.NewStorage().NormalizeName("WP_Straße"), wp.Name)

	fp, err := w.FindFreepointByName(" FP_GRÖSSE_01 ")
	require.NoError(t, err)
	assert.Equal(t, geom.V(2, 0, 0), fp.Position)

	_, err = w.FindFreepointByName("FP_NONE")
	assert.True(t, errors.Is(err, errs.ErrInvalidParameters))
}
