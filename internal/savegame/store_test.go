package savegame

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regoth/internal/config"
	"regoth/internal/demo"
	"regoth/internal/errs"
	"regoth/internal/world"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func village(t *testing.T) *world.World {
	t.Helper()
	m, err := demo.NewMachine()
	require.NoError(t, err)
	scene, err := world.ParseScene(demo.Scene)
	require.NoError(t, err)
	w, err := world.New(config.Default(), m, scene)
	require.NoError(t, err)
	return w
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")
	s, err := Open(path)
	require.NoError(t, err)
	version, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	version, err = s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openStore(t)
	w := village(t)
	for i := 0; i < 30; i++ {
		w.Tick(0.1)
	}
	snap, err := w.Snapshot()
	require.NoError(t, err)

	id, err := s.Save("morning", snap)
	require.NoError(t, err)
	_, err = ParseSaveID(string(id))
	require.NoError(t, err)

	loaded, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, snap.Scene, loaded.Scene)
	assert.Equal(t, snap.Day, loaded.Day)
	assert.Equal(t, snap.MinuteOfDay, loaded.MinuteOfDay)
	assert.Equal(t, snap.Ticks, loaded.Ticks)
	assert.Equal(t, snap.NextHandle, loaded.NextHandle)
	assert.Equal(t, snap.NextNative, loaded.NextNative)
	assert.Equal(t, snap.Mappings, loaded.Mappings)
	assert.Equal(t, snap.Bindings, loaded.Bindings)
	assert.Equal(t, snap.Globals, loaded.Globals)
	assert.Equal(t, snap.Characters, loaded.Characters)
	assert.Equal(t, snap.Items, loaded.Items)

	require.Len(t, loaded.Objects, len(snap.Objects))
	for i, obj := range snap.Objects {
		assert.Equal(t, obj.Handle, loaded.Objects[i].Handle)
		assert.Equal(t, obj.ClassName, loaded.Objects[i].ClassName)
	}

	// a loaded save restores into a fresh world over the same scene
	other := village(t)
	require.NoError(t, other.Restore(loaded))
	smith, ok := other.CharacterBySymbol(demo.Smith)
	require.True(t, ok)
	before, _ := w.CharacterBySymbol(demo.Smith)
	assert.Equal(t, before.Position(), smith.Position())
	assert.Equal(t, before.Instance(), smith.Instance())
	name, err := other.Machine().StringValue(smith.Instance(), "NAME")
	require.NoError(t, err)
	assert.Equal(t, "Harad", name)
}

func TestListGetAndDelete(t *testing.T) {
	s := openStore(t)
	w := village(t)
	snap, err := w.Snapshot()
	require.NoError(t, err)

	first, err := s.Save("first", snap)
	require.NoError(t, err)
	second, err := s.Save("second", snap)
	require.NoError(t, err)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID, "newest first")
	assert.Equal(t, first, list[1].ID)
	assert.Equal(t, "village", list[0].Scene)
	assert.Equal(t, 3, list[0].Characters)
	assert.Equal(t, len(snap.Objects), list[0].Objects)
	hour, minute := list[0].Time()
	assert.Equal(t, 8, hour)
	assert.Equal(t, 0, minute)

	sum, err := s.Get(first)
	require.NoError(t, err)
	assert.Equal(t, "first", sum.Name)

	require.NoError(t, s.Delete(first))
	list, err = s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second, list[0].ID)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM characters WHERE save_id = ?`, string(first)).Scan(&count))
	assert.Zero(t, count)
}

func TestUnknownSave(t *testing.T) {
	s := openStore(t)
	missing := NewSaveID()

	_, err := s.Load(missing)
	assert.True(t, errors.Is(err, errs.ErrInvalidParameters))
	_, err = s.Get(missing)
	assert.True(t, errors.Is(err, errs.ErrInvalidParameters))
	assert.True(t, errors.Is(s.Delete(missing), errs.ErrInvalidParameters))

	_, err = ParseSaveID("not-a-uuid")
	assert.True(t, errors.Is(err, errs.ErrInvalidParameters))
	_, err = s.Save("empty", nil)
	assert.Error(t, err)
}
