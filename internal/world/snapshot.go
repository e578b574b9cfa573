package world

import (
	"fmt"
	"sort"

	"regoth/internal/daedalus/objects"
	"regoth/internal/daedalus/symbols"
	"regoth/internal/events"
	"regoth/internal/geom"
)

// CharacterSnapshot is the saved form of a character.
type CharacterSnapshot struct {
	Native    objects.NativeHandle `json:"native"`
	Instance  objects.Handle       `json:"instance"`
	Symbol    string               `json:"symbol"`
	Player    bool                 `json:"player"`
	Position  geom.Vec3            `json:"position"`
	Direction geom.Vec3            `json:"direction"`
	WalkMode  events.WalkMode      `json:"walk_mode"`
	State     string               `json:"state"`
	InRoutine bool                 `json:"in_routine"`
}

// ItemSnapshot is the saved form of an item.
type ItemSnapshot struct {
	Native   objects.NativeHandle `json:"native"`
	Instance objects.Handle       `json:"instance"`
	Symbol   string               `json:"symbol"`
	Position geom.Vec3            `json:"position"`
}

// Mapping is one script object to scene object pair.
type Mapping struct {
	Script objects.Handle       `json:"script"`
	Native objects.NativeHandle `json:"native"`
}

// Snapshot is everything needed to restore a world over the same scene and
// symbol table. Handles are kept as they are, so instance symbols and the
// object mapping stay valid after a restore.
type Snapshot struct {
	Scene       string                    `json:"scene"`
	Day         int                       `json:"day"`
	MinuteOfDay float64                   `json:"minute_of_day"`
	Ticks       int                       `json:"ticks"`
	NextHandle  objects.Handle            `json:"next_handle"`
	NextNative  objects.NativeHandle      `json:"next_native"`
	Objects     []*objects.Object         `json:"objects"`
	Mappings    []Mapping                 `json:"mappings"`
	Bindings    map[string]objects.Handle `json:"bindings"`
	Globals     map[string][]int32        `json:"globals"`
	Characters  []CharacterSnapshot       `json:"characters"`
	Items       []ItemSnapshot            `json:"items"`
}

// Snapshot captures the current world state.
func (w *World) Snapshot() (*Snapshot, error) {
	store := w.machine.Objects()
	s := &Snapshot{
		Scene:       w.scene,
		Day:         w.clock.Day(),
		MinuteOfDay: w.clock.MinuteOfDay(),
		Ticks:       w.ticks,
		NextHandle:  store.NextHandle(),
		NextNative:  w.nextNative,
		Bindings:    w.machine.InstanceBindings(),
		Globals:     make(map[string][]int32),
	}
	w.machine.Symbols().Each(func(sym symbols.Symbol) {
		if v, ok := sym.(*symbols.IntSymbol); ok && !v.IsClassVar && !v.IsConst {
			s.Globals[v.Name] = append([]int32(nil), v.Ints...)
		}
	})

	for _, h := range store.Handles() {
		obj, err := store.Get(h)
		if err != nil {
			return nil, err
		}
		s.Objects = append(s.Objects, obj.Clone())
	}
	for script, native := range w.machine.Mapping().Pairs() {
		s.Mappings = append(s.Mappings, Mapping{Script: script, Native: native})
	}
	sort.Slice(s.Mappings, func(i, j int) bool { return s.Mappings[i].Script < s.Mappings[j].Script })

	for _, c := range w.Characters() {
		s.Characters = append(s.Characters, CharacterSnapshot{
			Native:    c.native,
			Instance:  c.instance,
			Symbol:    c.symbol,
			Player:    c.player,
			Position:  c.position,
			Direction: c.direction,
			WalkMode:  c.walkMode,
			State:     c.state.CurrentStateName(),
			InRoutine: c.state.IsInRoutine(),
		})
	}
	for _, i := range w.Items() {
		s.Items = append(s.Items, ItemSnapshot{Native: i.native, Instance: i.instance, Symbol: i.symbol, Position: i.position})
	}
	return s, nil
}

// Restore replaces the world state with s. Script objects come back under
// their saved handles; characters are recreated at their saved positions
// and their routines are rebuilt. Pending actions are not restored.
func (w *World) Restore(s *Snapshot) error {
	for _, c := range w.characters {
		c.queue.Clear()
		w.waynet.Release(c.native)
	}
	w.characters = make(map[objects.NativeHandle]*Character)
	w.items = make(map[objects.NativeHandle]*Item)
	w.hero = nil
	w.transcript = nil
	w.machine.Reset()

	w.clock = NewGameClock(w.cfg.Clock.MinutesPerSecond, s.Day, 0, 0)
	w.clock.minutes = s.MinuteOfDay
	w.ticks = s.Ticks

	store := w.machine.Objects()
	for _, obj := range s.Objects {
		if err := store.Restore(obj.Clone()); err != nil {
			return fmt.Errorf("restore object %d: %w", obj.Handle, err)
		}
	}
	store.SetNextHandle(s.NextHandle)
	for _, pair := range s.Mappings {
		if err := w.machine.Mapping().Map(pair.Script, pair.Native); err != nil {
			return fmt.Errorf("restore mapping %d: %w", pair.Script, err)
		}
	}
	for name, h := range s.Bindings {
		if err := w.machine.RestoreInstanceBinding(name, h); err != nil {
			return fmt.Errorf("restore binding %s: %w", name, err)
		}
	}
	for name, ints := range s.Globals {
		v, err := symbols.GetByName[*symbols.IntSymbol](w.machine.Symbols(), name)
		if err != nil {
			return fmt.Errorf("restore global %s: %w", name, err)
		}
		v.Ints = append([]int32(nil), ints...)
	}
	w.nextNative = s.NextNative

	for _, i := range s.Items {
		w.items[i.Native] = &Item{native: i.Native, instance: i.Instance, symbol: i.Symbol, position: i.Position}
	}
	for _, cs := range s.Characters {
		c := newCharacter(w, cs.Native, cs.Symbol, cs.Player)
		c.instance = cs.Instance
		c.position = cs.Position
		c.direction = cs.Direction
		c.walkMode = cs.WalkMode
		w.characters[c.native] = c
		if c.player {
			w.hero = c
			w.machine.SetHero(c.instance)
		}
	}

	// routines only once every character exists, they may refer to each other
	for _, cs := range s.Characters {
		c := w.characters[cs.Native]
		if err := w.startDailyRoutine(c); err != nil {
			return err
		}
		if cs.State != "" && !cs.InRoutine {
			c.state.StartScriptAIState(cs.State)
		}
	}

	w.log.Info("world restored", "characters", len(w.characters), "items", len(w.items), "clock", w.clock.String())
	return nil
}
