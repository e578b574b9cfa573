package world

import (
	"log/slog"

	"regoth/internal/ai"
	"regoth/internal/daedalus/objects"
	"regoth/internal/events"
	"regoth/internal/geom"
	"regoth/internal/log"
	"regoth/internal/pathfinder"
)

// Character is an NPC or the hero placed in the world. Its actions run
// through its event queue; its behaviour is driven by its ScriptState.
type Character struct {
	world    *World
	native   objects.NativeHandle
	instance objects.Handle
	symbol   string
	player   bool

	position   geom.Vec3
	direction  geom.Vec3
	walkMode   events.WalkMode
	steer      *geom.Vec3
	lookAt     objects.NativeHandle
	weaponMode int
	animation  string

	queue      *events.Queue
	pathfinder *pathfinder.Pathfinder
	state      *ai.ScriptState
	log        *slog.Logger
}

func newCharacter(w *World, native objects.NativeHandle, symbol string, player bool) *Character {
	c := &Character{
		world:     w,
		native:    native,
		symbol:    symbol,
		player:    player,
		direction: geom.V(0, 0, 1),
		walkMode:  events.WalkModeWalk,
		log:       log.With("character").With("npc", symbol, "native", native),
	}
	c.queue = events.NewQueue(native, c)
	c.pathfinder = pathfinder.New(w.pathfinderConfig(), w.waynet, w.physics, w.locate)
	c.state = ai.NewScriptState(c, w.machine, w.clock)
	return c
}

// Native returns the character's scene handle.
func (c *Character) Native() objects.NativeHandle { return c.native }

// Instance returns the script object of the character.
func (c *Character) Instance() objects.Handle { return c.instance }

// Symbol returns the name of the instance symbol the character was created from.
func (c *Character) Symbol() string { return c.symbol }

func (c *Character) Position() geom.Vec3  { return c.position }
func (c *Character) Direction() geom.Vec3 { return c.direction }

// SetPosition teleports the character.
func (c *Character) SetPosition(pos geom.Vec3) { c.position = pos }

func (c *Character) WalkMode() events.WalkMode    { return c.walkMode }
func (c *Character) Animation() string            { return c.animation }
func (c *Character) LookAt() objects.NativeHandle { return c.lookAt }
func (c *Character) WeaponMode() int              { return c.weaponMode }

func (c *Character) Queue() *events.Queue                { return c.queue }
func (c *Character) Pathfinder() *pathfinder.Pathfinder { return c.pathfinder }
func (c *Character) State() *ai.ScriptState             { return c.state }

// ScriptInstance implements ai.Host.
func (c *Character) ScriptInstance() objects.Handle { return c.instance }

// IsPlayer implements ai.Host.
func (c *Character) IsPlayer() bool { return c.player }

// IsEventQueueEmpty implements ai.Host.
func (c *Character) IsEventQueueEmpty() bool { return c.queue.IsEmpty() }

// ClearEventQueue implements ai.Host. Pending movement is dropped as well.
func (c *Character) ClearEventQueue() {
	c.queue.Clear()
	c.steer = nil
}

// OnNativeStateLoop implements ai.Host.
func (c *Character) OnNativeStateLoop(state string) {
	switch state {
	case ai.StateDead:
		c.animation = "T_DEAD"
	case ai.StateUnconscious:
		c.animation = "S_WOUNDEDB"
	case ai.StateFadeAway:
		c.animation = "T_FADEAWAY"
	case ai.StateFollow:
		c.follow()
	case ai.StateAnswer:
	}
}

// follow keeps walking behind the state's OTHER.
func (c *Character) follow() {
	other := c.state.Current().Bindings.Other
	target, err := c.world.characterByInstance(other)
	if err != nil || !c.queue.IsEmpty() {
		return
	}
	if geom.Distance(c.position, target.position) > followDistance {
		c.queue.OnMessage(events.NewMovement(events.MovementGotoVob, events.MovementPayload{TargetVob: target.native}))
	}
}

const followDistance = 3.0

func (c *Character) speed() float64 {
	if c.walkMode == events.WalkModeRun {
		return c.world.cfg.Character.RunSpeed
	}
	return c.world.cfg.Character.WalkSpeed
}

// integrate moves the character towards the position its current movement
// action steered to.
func (c *Character) integrate(dt float64) {
	if c.steer == nil {
		return
	}
	target := *c.steer
	c.steer = nil

	if dir := target.Sub(c.position).Horizontal(); dir.SquaredLength() > 0 {
		c.direction = dir.Normalized()
	}
	c.position = geom.MoveTowards(c.position, target, c.speed()*dt)
}

func (c *Character) faceTowards(pos geom.Vec3) {
	if dir := pos.Sub(c.position).Horizontal(); dir.SquaredLength() > 0 {
		c.direction = dir.Normalized()
	}
}
