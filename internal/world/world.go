// Package world ties the script machine to the simulated scene: characters
// with their action queues and AI, items, the waynet, obstacles and the game
// clock. Scripts reach it through the externals it registers.
package world

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"regoth/internal/config"
	"regoth/internal/daedalus/objects"
	"regoth/internal/daedalus/symbols"
	"regoth/internal/daedalus/vm"
	"regoth/internal/errs"
	"regoth/internal/geom"
	"regoth/internal/log"
	"regoth/internal/pathfinder"
	"regoth/internal/physics"
	"regoth/internal/waynet"
)

// Script classes the world instantiates.
const (
	ClassNPC  = "C_NPC"
	ClassItem = "C_ITEM"
)

// Item is an item instance lying in the world.
type Item struct {
	native   objects.NativeHandle
	instance objects.Handle
	symbol   string
	position geom.Vec3
}

func (i *Item) Native() objects.NativeHandle { return i.native }
func (i *Item) Instance() objects.Handle     { return i.instance }
func (i *Item) Symbol() string               { return i.symbol }
func (i *Item) Position() geom.Vec3          { return i.position }

// DialogueLine is one spoken line, kept for the transcript.
type DialogueLine struct {
	Day      int
	Hour     int
	Minute   int
	Speaker  string
	Listener string
	Name     string
	Text     string
}

// World is the simulation context. It is not safe for concurrent use; one
// goroutine drives Tick.
type World struct {
	cfg     config.Config
	scene   string
	machine *vm.Machine
	waynet  *waynet.Waynet
	physics *physics.World
	clock   *GameClock

	characters map[objects.NativeHandle]*Character
	items      map[objects.NativeHandle]*Item
	hero       *Character
	nextNative objects.NativeHandle

	dialogue   map[string]string
	transcript []DialogueLine

	delta float64
	ticks int
	log   *slog.Logger
}

// New builds the world described by scene on top of machine and spawns its
// hero, NPCs and items.
func New(cfg config.Config, machine *vm.Machine, scene *Scene) (*World, error) {
	wn, err := waynet.FromDefinition(scene.Waynet)
	if err != nil {
		return nil, fmt.Errorf("failed to build waynet: %w", err)
	}

	day, hour, minute := cfg.Clock.StartDay, cfg.Clock.StartHour, cfg.Clock.StartMinute
	if scene.Clock != nil {
		day, hour, minute = scene.Clock.Day, scene.Clock.Hour, scene.Clock.Minute
	}

	w := &World{
		cfg:        cfg,
		scene:      scene.Name,
		machine:    machine,
		waynet:     wn,
		physics:    physics.NewWorld(scene.Obstacles...),
		clock:      NewGameClock(cfg.Clock.MinutesPerSecond, day, hour, minute),
		characters: make(map[objects.NativeHandle]*Character),
		items:      make(map[objects.NativeHandle]*Item),
		nextNative: 1,
		dialogue:   make(map[string]string),
		log:        log.With("world"),
	}
	for name, text := range scene.Dialogue {
		w.AddDialogue(name, text)
	}
	RegisterExternals(w)

	if scene.Hero != nil {
		if _, err := w.InsertHero(scene.Hero.Instance, scene.Hero.At); err != nil {
			return nil, fmt.Errorf("failed to insert hero %s: %w", scene.Hero.Instance, err)
		}
	}
	if scene.Startup != "" {
		if err := machine.RunFunction(scene.Startup); err != nil {
			return nil, fmt.Errorf("failed to run startup %s: %w", scene.Startup, err)
		}
	}
	for _, spawn := range scene.NPCs {
		if _, err := w.InsertCharacter(spawn.Instance, spawn.At); err != nil {
			return nil, fmt.Errorf("failed to insert npc %s: %w", spawn.Instance, err)
		}
	}
	for _, spawn := range scene.Items {
		pos := geom.Vec3{}
		if spawn.Position != nil {
			pos = *spawn.Position
		} else if pos, _, err = w.resolvePoint(spawn.At); err != nil {
			return nil, fmt.Errorf("failed to place item %s: %w", spawn.Instance, err)
		}
		if _, err := w.InsertItem(spawn.Instance, pos); err != nil {
			return nil, fmt.Errorf("failed to insert item %s: %w", spawn.Instance, err)
		}
	}

	w.log.Info("world created", "scene", scene.Name, "characters", len(w.characters), "items", len(w.items), "clock", w.clock.String())
	return w, nil
}

func (w *World) Machine() *vm.Machine    { return w.machine }
func (w *World) Waynet() *waynet.Waynet  { return w.waynet }
func (w *World) Physics() *physics.World { return w.physics }
func (w *World) Clock() *GameClock       { return w.clock }
func (w *World) Hero() *Character        { return w.hero }
func (w *World) SceneName() string       { return w.scene }
func (w *World) Ticks() int              { return w.ticks }
func (w *World) Config() config.Config   { return w.cfg }

// Transcript returns every line spoken so far.
func (w *World) Transcript() []DialogueLine {
	return append([]DialogueLine(nil), w.transcript...)
}

// AddDialogue registers the text spoken for an output name.
func (w *World) AddDialogue(name, text string) {
	w.dialogue[w.machine.Symbols().NormalizeName(name)] = text
}

func (w *World) dialogueText(name string) string {
	if text, ok := w.dialogue[w.machine.Symbols().NormalizeName(name)]; ok {
		return text
	}
	return name
}

func (w *World) say(speaker *Character, listener objects.NativeHandle, name, text string) {
	line := DialogueLine{Day: w.clock.Day(), Speaker: speaker.symbol, Name: name, Text: text}
	line.Hour, line.Minute = w.clock.TimeOfDay()
	if c, ok := w.characters[listener]; ok {
		line.Listener = c.symbol
	}
	w.transcript = append(w.transcript, line)
	w.log.Info("dialogue", "speaker", line.Speaker, "listener", line.Listener, "text", text)
}

func (w *World) pathfinderConfig() pathfinder.Config {
	return pathfinder.Config{
		ReachRadius:     w.cfg.Pathfinder.ReachRadius,
		ReachHeight:     w.cfg.Pathfinder.ReachHeight,
		CleanupDistance: w.cfg.Pathfinder.CleanupDistance,
		RerouteDistance: w.cfg.Pathfinder.RerouteDistance,
	}
}

// locate returns the position of a character or item.
func (w *World) locate(native objects.NativeHandle) (geom.Vec3, bool) {
	if c, ok := w.characters[native]; ok {
		return c.position, true
	}
	if i, ok := w.items[native]; ok {
		return i.position, true
	}
	return geom.Vec3{}, false
}

// resolvePoint looks a name up as waypoint, then as freepoint.
func (w *World) resolvePoint(name string) (geom.Vec3, geom.Vec3, error) {
	if wp, err := w.waynet.FindWaypointByName(name); err == nil {
		return wp.Position, wp.Direction, nil
	}
	if fp, err := w.waynet.FindFreepointByName(name); err == nil {
		return fp.Position, fp.Direction, nil
	}
	return geom.Vec3{}, geom.Vec3{}, errs.InvalidParameters("no waypoint or freepoint %q", name)
}

func (w *World) allocNative() objects.NativeHandle {
	h := w.nextNative
	w.nextNative++
	return h
}

// Character returns the character with the given scene handle.
func (w *World) Character(native objects.NativeHandle) (*Character, bool) {
	c, ok := w.characters[native]
	return c, ok
}

// CharacterBySymbol returns the character created from the named instance.
func (w *World) CharacterBySymbol(name string) (*Character, bool) {
	name = w.machine.Symbols().NormalizeName(name)
	for _, c := range w.Characters() {
		if c.symbol == name {
			return c, true
		}
	}
	return nil, false
}

func (w *World) characterByInstance(h objects.Handle) (*Character, error) {
	native, err := w.machine.Mapping().MappedSceneObject(h)
	if err != nil {
		return nil, err
	}
	c, ok := w.characters[native]
	if !ok {
		return nil, errs.InvalidParameters("script object %d is no character", h)
	}
	return c, nil
}

// Characters returns every character in ascending scene handle order.
func (w *World) Characters() []*Character {
	out := make([]*Character, 0, len(w.characters))
	for _, c := range w.characters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].native < out[j].native })
	return out
}

// Items returns every item in ascending scene handle order.
func (w *World) Items() []*Item {
	out := make([]*Item, 0, len(w.items))
	for _, i := range w.items {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].native < out[j].native })
	return out
}

// InsertCharacter creates an NPC from the named instance at a waypoint or
// freepoint and starts its daily routine.
func (w *World) InsertCharacter(instance, at string) (*Character, error) {
	return w.insertCharacter(instance, at, false)
}

// InsertHero creates the player character.
func (w *World) InsertHero(instance, at string) (*Character, error) {
	c, err := w.insertCharacter(instance, at, true)
	if err != nil {
		return nil, err
	}
	w.hero = c
	w.machine.SetHero(c.instance)
	return c, nil
}

func (w *World) insertCharacter(instance, at string, player bool) (*Character, error) {
	table := w.machine.Symbols()
	index, err := table.FindIndexBySymbolName(instance)
	if err != nil {
		return nil, err
	}
	pos, dir, err := w.resolvePoint(at)
	if err != nil {
		return nil, err
	}

	c := newCharacter(w, w.allocNative(), table.NameOf(index), player)
	c.position = pos
	if dir.SquaredLength() > 0 {
		c.direction = dir.Normalized()
	}
	// registered first: constructors may call externals on the new NPC
	w.characters[c.native] = c

	h, err := w.machine.InstantiateClass(ClassNPC, index, c.native)
	if err != nil {
		delete(w.characters, c.native)
		if h != objects.InvalidHandle {
			_ = w.machine.DestroyInstance(h)
		}
		return nil, err
	}
	c.instance = h
	if obj, err := w.machine.Object(h); err == nil && obj.HasField("WP") {
		_ = obj.SetString("WP", w.machine.Symbols().NormalizeName(at))
	}

	if err := w.startDailyRoutine(c); err != nil {
		return c, err
	}
	w.log.Debug("character inserted", "instance", c.symbol, "native", c.native, "handle", h, "at", at)
	return c, nil
}

// startDailyRoutine rebuilds the routine from the NPC's DAILY_ROUTINE
// function.
func (w *World) startDailyRoutine(c *Character) error {
	c.state.ClearRoutine()
	fn, err := w.machine.FunctionPointerValue(c.instance, "DAILY_ROUTINE")
	if err != nil || fn == objects.NoFunction {
		return nil
	}
	if err := w.machine.RunFunctionOnSelf(symbols.SymbolIndex(fn), c.instance); err != nil {
		return fmt.Errorf("daily routine of %s: %w", c.symbol, err)
	}
	c.state.ReinitRoutine()
	return nil
}

// ExchangeRoutine replaces the daily routine of c with the function called
// name.
func (w *World) ExchangeRoutine(c *Character, name string) error {
	index, err := w.machine.Symbols().FindIndexBySymbolName(name)
	if err != nil {
		return err
	}
	if obj, err := w.machine.Object(c.instance); err == nil && obj.HasField("DAILY_ROUTINE") {
		if err := obj.SetFunctionPointer("DAILY_ROUTINE", objects.FunctionPointer(index)); err != nil {
			return err
		}
	}
	c.state.ClearRoutine()
	if err := w.machine.RunFunctionOnSelf(index, c.instance); err != nil {
		return err
	}
	c.state.ReinitRoutine()
	return nil
}

// RemoveCharacter takes a character out of the world. Its queue is cleared
// and its script object is unmapped before it is destroyed.
func (w *World) RemoveCharacter(native objects.NativeHandle) error {
	c, ok := w.characters[native]
	if !ok {
		return errs.InvalidParameters("no character %d", native)
	}
	c.ClearEventQueue()
	w.waynet.Release(native)
	delete(w.characters, native)
	if w.hero == c {
		w.hero = nil
	}
	return w.machine.DestroyInstance(c.instance)
}

// InsertItem creates an item from the named instance at pos.
func (w *World) InsertItem(instance string, pos geom.Vec3) (*Item, error) {
	table := w.machine.Symbols()
	index, err := table.FindIndexBySymbolName(instance)
	if err != nil {
		return nil, err
	}
	item := &Item{native: w.allocNative(), symbol: table.NameOf(index), position: pos}
	w.items[item.native] = item

	h, err := w.machine.InstantiateClass(ClassItem, index, item.native)
	if err != nil {
		delete(w.items, item.native)
		if h != objects.InvalidHandle {
			_ = w.machine.DestroyInstance(h)
		}
		return nil, err
	}
	item.instance = h
	return item, nil
}

func (w *World) removeItem(item *Item) {
	delete(w.items, item.native)
	if err := w.machine.DestroyInstance(item.instance); err != nil {
		w.log.Warn("failed to destroy item", "item", item.symbol, "error", err)
	}
}

func (w *World) runOnSelf(function string, self objects.Handle) error {
	index, err := w.machine.Symbols().FindIndexBySymbolName(function)
	if err != nil {
		return err
	}
	return w.machine.RunFunctionOnSelf(index, self)
}

// Tick advances the simulation by dt seconds: the clock first, then every
// character in ascending scene handle order runs its AI, its action queue
// and its movement.
func (w *World) Tick(dt float64) {
	w.delta = dt
	w.clock.Advance(dt)

	for _, c := range w.Characters() {
		// removed by an earlier character this tick
		if _, ok := w.characters[c.native]; !ok {
			continue
		}
		c.state.DoAIState(dt)
		c.queue.ProcessMessageQueue()
		c.integrate(dt)
	}
	w.ticks++
}

func routineFunctionName(routine string, id int32) string {
	return fmt.Sprintf("RTN_%s_%d", strings.ToUpper(routine), id)
}
