// Package savegame keeps world snapshots in a SQLite database.
package savegame

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"regoth/internal/daedalus/objects"
	"regoth/internal/errs"
	"regoth/internal/events"
	"regoth/internal/geom"
	"regoth/internal/log"
	"regoth/internal/world"
)

// SaveID identifies a save. It is a UUID in its canonical text form.
type SaveID string

// NewSaveID returns a fresh random id.
func NewSaveID() SaveID {
	return SaveID(uuid.NewString())
}

// ParseSaveID validates a user supplied id.
func ParseSaveID(s string) (SaveID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", errs.InvalidParameters("invalid save id %q: %v", s, err)
	}
	return SaveID(id.String()), nil
}

// Summary describes a save without loading it.
type Summary struct {
	ID          SaveID
	Name        string
	Scene       string
	Day         int
	MinuteOfDay float64
	Ticks       int
	Characters  int
	Objects     int
	CreatedAt   time.Time
}

// Time returns the in-game time of day of the save.
func (s Summary) Time() (hour, minute int) {
	m := int(s.MinuteOfDay)
	return m / 60, m % 60
}

// Store is a save-game database.
type Store struct {
	db   *sql.DB
	path string
	sq   squirrel.StatementBuilderType
	log  *slog.Logger
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open save database %s: %w", path, err)
	}
	// a single connection serialises writers
	db.SetMaxOpenConns(1)

	s := &Store{
		db:   db,
		path: path,
		sq:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log:  log.With("savegame"),
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

func execBuilder(tx *sql.Tx, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(query, args...)
	return err
}

// Save stores snap under name and returns the id of the new save.
func (s *Store) Save(name string, snap *world.Snapshot) (SaveID, error) {
	if snap == nil {
		return "", errs.InvalidParameters("nothing to save")
	}
	globals, err := json.Marshal(snap.Globals)
	if err != nil {
		return "", fmt.Errorf("failed to encode globals: %w", err)
	}

	id := NewSaveID()
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	save := s.sq.Insert("saves").
		Columns("id", "name", "scene", "day", "minute_of_day", "ticks", "next_handle", "next_native", "globals", "created_at").
		Values(string(id), name, snap.Scene, snap.Day, snap.MinuteOfDay, snap.Ticks, uint32(snap.NextHandle), uint64(snap.NextNative), string(globals), time.Now().UnixMilli())
	if err := execBuilder(tx, save); err != nil {
		return "", fmt.Errorf("failed to insert save: %w", err)
	}

	if len(snap.Objects) > 0 {
		insert := s.sq.Insert("script_objects").Columns("save_id", "handle", "class", "data")
		for _, obj := range snap.Objects {
			data, err := json.Marshal(obj)
			if err != nil {
				return "", fmt.Errorf("failed to encode object %d: %w", obj.Handle, err)
			}
			insert = insert.Values(string(id), uint32(obj.Handle), obj.ClassName, string(data))
		}
		if err := execBuilder(tx, insert); err != nil {
			return "", fmt.Errorf("failed to insert script objects: %w", err)
		}
	}

	if len(snap.Mappings) > 0 {
		insert := s.sq.Insert("object_mappings").Columns("save_id", "script_handle", "native_handle")
		for _, m := range snap.Mappings {
			insert = insert.Values(string(id), uint32(m.Script), uint64(m.Native))
		}
		if err := execBuilder(tx, insert); err != nil {
			return "", fmt.Errorf("failed to insert mappings: %w", err)
		}
	}

	if len(snap.Bindings) > 0 {
		insert := s.sq.Insert("instance_bindings").Columns("save_id", "symbol", "handle")
		for symbol, h := range snap.Bindings {
			insert = insert.Values(string(id), symbol, uint32(h))
		}
		if err := execBuilder(tx, insert); err != nil {
			return "", fmt.Errorf("failed to insert bindings: %w", err)
		}
	}

	if len(snap.Characters) > 0 {
		insert := s.sq.Insert("characters").Columns("save_id", "native", "instance", "symbol", "player",
			"pos_x", "pos_y", "pos_z", "dir_x", "dir_y", "dir_z", "walk_mode", "state", "in_routine")
		for _, c := range snap.Characters {
			insert = insert.Values(string(id), uint64(c.Native), uint32(c.Instance), c.Symbol, c.Player,
				c.Position.X, c.Position.Y, c.Position.Z, c.Direction.X, c.Direction.Y, c.Direction.Z,
				int(c.WalkMode), c.State, c.InRoutine)
		}
		if err := execBuilder(tx, insert); err != nil {
			return "", fmt.Errorf("failed to insert characters: %w", err)
		}
	}

	if len(snap.Items) > 0 {
		insert := s.sq.Insert("items").Columns("save_id", "native", "instance", "symbol", "pos_x", "pos_y", "pos_z")
		for _, i := range snap.Items {
			insert = insert.Values(string(id), uint64(i.Native), uint32(i.Instance), i.Symbol, i.Position.X, i.Position.Y, i.Position.Z)
		}
		if err := execBuilder(tx, insert); err != nil {
			return "", fmt.Errorf("failed to insert items: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit save: %w", err)
	}
	s.log.Info("game saved", "id", id, "name", name, "objects", len(snap.Objects), "characters", len(snap.Characters))
	return id, nil
}

func (s *Store) summaries(where squirrel.Sqlizer) ([]Summary, error) {
	q := s.sq.Select("s.id", "s.name", "s.scene", "s.day", "s.minute_of_day", "s.ticks", "s.created_at",
		"(SELECT COUNT(*) FROM characters c WHERE c.save_id = s.id)",
		"(SELECT COUNT(*) FROM script_objects o WHERE o.save_id = s.id)").
		From("saves s").
		OrderBy("s.created_at DESC", "s.rowid DESC")
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var id string
		var created int64
		if err := rows.Scan(&id, &sum.Name, &sum.Scene, &sum.Day, &sum.MinuteOfDay, &sum.Ticks, &created, &sum.Characters, &sum.Objects); err != nil {
			return nil, err
		}
		sum.ID = SaveID(id)
		sum.CreatedAt = time.UnixMilli(created)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// List returns every save, newest first.
func (s *Store) List() ([]Summary, error) {
	return s.summaries(nil)
}

// Get returns the summary of one save.
func (s *Store) Get(id SaveID) (Summary, error) {
	list, err := s.summaries(squirrel.Eq{"s.id": string(id)})
	if err != nil {
		return Summary{}, err
	}
	if len(list) == 0 {
		return Summary{}, errs.InvalidParameters("no save %s", id)
	}
	return list[0], nil
}

// Load reads a save back into a snapshot.
func (s *Store) Load(id SaveID) (*world.Snapshot, error) {
	snap := &world.Snapshot{
		Bindings: make(map[string]objects.Handle),
		Globals:  make(map[string][]int32),
	}

	var globals string
	var nextHandle uint32
	var nextNative uint64
	err := s.db.QueryRow(`SELECT scene, day, minute_of_day, ticks, next_handle, next_native, globals FROM saves WHERE id = ?`, string(id)).
		Scan(&snap.Scene, &snap.Day, &snap.MinuteOfDay, &snap.Ticks, &nextHandle, &nextNative, &globals)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.InvalidParameters("no save %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read save %s: %w", id, err)
	}
	snap.NextHandle = objects.Handle(nextHandle)
	snap.NextNative = objects.NativeHandle(nextNative)
	if err := json.Unmarshal([]byte(globals), &snap.Globals); err != nil {
		return nil, fmt.Errorf("failed to decode globals: %w", err)
	}

	if err := s.loadObjects(id, snap); err != nil {
		return nil, fmt.Errorf("failed to read script objects: %w", err)
	}
	if err := s.loadMappings(id, snap); err != nil {
		return nil, fmt.Errorf("failed to read mappings: %w", err)
	}
	if err := s.loadBindings(id, snap); err != nil {
		return nil, fmt.Errorf("failed to read bindings: %w", err)
	}
	if err := s.loadCharacters(id, snap); err != nil {
		return nil, fmt.Errorf("failed to read characters: %w", err)
	}
	if err := s.loadItems(id, snap); err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	return snap, nil
}

func (s *Store) query(b squirrel.SelectBuilder) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return s.db.Query(query, args...)
}

func (s *Store) loadObjects(id SaveID, snap *world.Snapshot) error {
	rows, err := s.query(s.sq.Select("data").From("script_objects").Where(squirrel.Eq{"save_id": string(id)}).OrderBy("handle"))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return err
		}
		var obj objects.Object
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			return err
		}
		snap.Objects = append(snap.Objects, &obj)
	}
	return rows.Err()
}

func (s *Store) loadMappings(id SaveID, snap *world.Snapshot) error {
	rows, err := s.query(s.sq.Select("script_handle", "native_handle").From("object_mappings").Where(squirrel.Eq{"save_id": string(id)}).OrderBy("script_handle"))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var script uint32
		var native uint64
		if err := rows.Scan(&script, &native); err != nil {
			return err
		}
		snap.Mappings = append(snap.Mappings, world.Mapping{Script: objects.Handle(script), Native: objects.NativeHandle(native)})
	}
	return rows.Err()
}

func (s *Store) loadBindings(id SaveID, snap *world.Snapshot) error {
	rows, err := s.query(s.sq.Select("symbol", "handle").From("instance_bindings").Where(squirrel.Eq{"save_id": string(id)}))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var symbol string
		var h uint32
		if err := rows.Scan(&symbol, &h); err != nil {
			return err
		}
		snap.Bindings[symbol] = objects.Handle(h)
	}
	return rows.Err()
}

func (s *Store) loadCharacters(id SaveID, snap *world.Snapshot) error {
	rows, err := s.query(s.sq.Select("native", "instance", "symbol", "player", "pos_x", "pos_y", "pos_z",
		"dir_x", "dir_y", "dir_z", "walk_mode", "state", "in_routine").
		From("characters").Where(squirrel.Eq{"save_id": string(id)}).OrderBy("native"))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var c world.CharacterSnapshot
		var native uint64
		var instance uint32
		var walkMode int
		if err := rows.Scan(&native, &instance, &c.Symbol, &c.Player, &c.Position.X, &c.Position.Y, &c.Position.Z,
			&c.Direction.X, &c.Direction.Y, &c.Direction.Z, &walkMode, &c.State, &c.InRoutine); err != nil {
			return err
		}
		c.Native = objects.NativeHandle(native)
		c.Instance = objects.Handle(instance)
		c.WalkMode = events.WalkMode(walkMode)
		snap.Characters = append(snap.Characters, c)
	}
	return rows.Err()
}

func (s *Store) loadItems(id SaveID, snap *world.Snapshot) error {
	rows, err := s.query(s.sq.Select("native", "instance", "symbol", "pos_x", "pos_y", "pos_z").
		From("items").Where(squirrel.Eq{"save_id": string(id)}).OrderBy("native"))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var native uint64
		var instance uint32
		var symbol string
		var pos geom.Vec3
		if err := rows.Scan(&native, &instance, &symbol, &pos.X, &pos.Y, &pos.Z); err != nil {
			return err
		}
		snap.Items = append(snap.Items, world.ItemSnapshot{
			Native:   objects.NativeHandle(native),
			Instance: objects.Handle(instance),
			Symbol:   symbol,
			Position: pos,
		})
	}
	return rows.Err()
}

// Delete removes a save with everything stored for it.
func (s *Store) Delete(id SaveID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"items", "characters", "instance_bindings", "object_mappings", "script_objects"} {
		if err := execBuilder(tx, s.sq.Delete(table).Where(squirrel.Eq{"save_id": string(id)})); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	query, args, err := s.sq.Delete("saves").Where(squirrel.Eq{"id": string(id)}).ToSql()
	if err != nil {
		return err
	}
	res, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete save: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.InvalidParameters("no save %s", id)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info("save deleted", "id", id)
	return nil
}
