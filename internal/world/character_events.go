package world

import (
	"math"

	"regoth/internal/daedalus/objects"
	"regoth/internal/events"
	"regoth/internal/geom"
)

// freepointSearchRadius bounds the freepoint lookup of a goto-freepoint
// action, in meters.
const freepointSearchRadius = 20.0

// animationSeconds is how long a one-shot animation occupies the queue.
const animationSeconds = 1.0

// OnExecuteEventAction implements events.Host. Jobs complete by setting
// Deleted; an action that cannot run is completed right away.
func (c *Character) OnExecuteEventAction(msg *events.Message) {
	switch msg.Type {
	case events.TypeMovement:
		c.onMovement(msg)
	case events.TypeConversation:
		c.onConversation(msg)
	case events.TypeState:
		c.onState(msg)
	case events.TypeWeapon:
		c.onWeapon(msg)
	case events.TypeUseItem:
		c.log.Info("uses item", "item", msg.UseItem.Item)
		msg.Deleted = true
	case events.TypeDamage:
		c.log.Info("takes damage", "amount", msg.Damage.Amount, "source", msg.Source)
		msg.Deleted = true
	case events.TypeManipulate:
		c.onManipulate(msg)
	default:
		c.unsupported(msg)
	}
}

func (c *Character) unsupported(msg *events.Message) {
	c.log.Debug("unsupported event message", "message", msg.String())
	msg.Deleted = true
}

func (c *Character) onMovement(msg *events.Message) {
	p := msg.Movement
	switch msg.Subtype {
	case events.MovementGotoPos, events.MovementGotoVob, events.MovementGotoFP, events.MovementGoRoute:
		c.walk(msg)
	case events.MovementSetWalkMode:
		c.walkMode = p.WalkMode
		msg.Deleted = true
	case events.MovementStandup:
		c.animation = ""
		msg.Deleted = true
	case events.MovementTurnToVob:
		if target, ok := c.world.locate(p.TargetVob); ok {
			c.faceTowards(target)
		}
		msg.Deleted = true
	case events.MovementTurnToPos:
		c.faceTowards(p.TargetPosition)
		msg.Deleted = true
	case events.MovementBeamTo:
		if pos, _, err := c.world.resolvePoint(p.TargetWaypoint); err == nil {
			c.position = pos
		}
		msg.Deleted = true
	default:
		c.unsupported(msg)
	}
}

// walk runs one tick of a goto action: the route is computed on the first
// delivery, then the pathfinder hands out the next position to steer to
// until the route is complete.
func (c *Character) walk(msg *events.Message) {
	p := msg.Movement
	if !p.Started {
		if !c.startRoute(msg) {
			msg.Deleted = true
			return
		}
		p.Started = true
	}

	next := c.pathfinder.UpdateToNextInstructionToTarget(c.position)
	if c.pathfinder.HasActiveRouteBeenCompleted(c.position) {
		if msg.Subtype == events.MovementGoRoute && len(p.Route) > 1 {
			p.Route = p.Route[1:]
			if c.startRoute(msg) {
				return
			}
		}
		if msg.Subtype == events.MovementGotoFP && p.TargetFreepoint != "" {
			if fp, ok := c.world.waynet.FindFreepoint(p.TargetFreepoint, c.position, freepointSearchRadius, c.native); ok {
				c.direction = fp.Direction
			}
		}
		msg.Deleted = true
		return
	}
	c.steer = &next
}

func (c *Character) startRoute(msg *events.Message) bool {
	p := msg.Movement
	switch msg.Subtype {
	case events.MovementGotoVob:
		c.pathfinder.StartNewRouteToEntity(c.position, p.TargetVob)
		return true
	case events.MovementGotoFP:
		fp, ok := c.world.waynet.FindFreepoint(p.TargetFreepoint, c.position, freepointSearchRadius, c.native)
		if !ok {
			c.log.Debug("no free freepoint", "tag", p.TargetFreepoint)
			return false
		}
		if err := c.world.waynet.Occupy(fp.Name, c.native); err != nil {
			c.log.Debug("freepoint taken", "freepoint", fp.Name, "error", err)
			return false
		}
		c.pathfinder.StartNewRouteToPosition(c.position, fp.Position)
		return true
	case events.MovementGoRoute:
		if len(p.Route) == 0 {
			return false
		}
		return c.routeToPoint(p.Route[0])
	default:
		if p.TargetWaypoint != "" {
			return c.routeToPoint(p.TargetWaypoint)
		}
		c.pathfinder.StartNewRouteToPosition(c.position, p.TargetPosition)
		return true
	}
}

func (c *Character) routeToPoint(name string) bool {
	pos, _, err := c.world.resolvePoint(name)
	if err != nil {
		c.log.Debug("unknown route target", "target", name, "error", err)
		return false
	}
	c.pathfinder.StartNewRouteToPosition(c.position, pos)
	return true
}

func (c *Character) onConversation(msg *events.Message) {
	p := msg.Conversation
	switch msg.Subtype {
	case events.ConversationOutput, events.ConversationOutputSVM, events.ConversationOutputSVMOverlay:
		c.speak(msg)
	case events.ConversationPlayAni, events.ConversationPlayAniSound, events.ConversationPlayAniNoOverlay:
		if p.Status == events.ConversationInit {
			c.animation = p.Animation
			if p.Duration <= 0 {
				p.Duration = animationSeconds
			}
			p.Status = events.ConversationPlaying
			return
		}
		c.play(msg)
	case events.ConversationLookAt, events.ConversationQuickLook, events.ConversationPointAt:
		c.lookAt = p.Target
		msg.Deleted = true
	case events.ConversationStopLookAt, events.ConversationStopPointAt:
		c.lookAt = objects.InvalidNativeHandle
		msg.Deleted = true
	case events.ConversationPlayAniFace:
		msg.Deleted = true
	case events.ConversationWaitTillEnd:
		// released by the completion of the awaited message
	default:
		c.unsupported(msg)
	}
}

// speak starts a dialogue line on the first delivery and keeps the queue
// busy until it has been spoken.
func (c *Character) speak(msg *events.Message) {
	p := msg.Conversation
	if p.Status == events.ConversationInit {
		p.Text = c.world.dialogueText(p.Name)
		cfg := c.world.cfg.Character
		p.Duration = math.Max(cfg.DialogueMinSeconds, float64(len(p.Text))*cfg.DialogueSecondsPerCh)
		p.Status = events.ConversationPlaying
		if p.Target != objects.InvalidNativeHandle {
			c.lookAt = p.Target
			if target, ok := c.world.locate(p.Target); ok {
				c.faceTowards(target)
			}
		}
		c.world.say(c, p.Target, p.Name, p.Text)
		return
	}
	c.play(msg)
}

func (c *Character) play(msg *events.Message) {
	p := msg.Conversation
	p.Elapsed += c.world.delta
	if p.Elapsed >= p.Duration {
		p.Status = events.ConversationFadingOut
		msg.Deleted = true
	}
}

func (c *Character) onState(msg *events.Message) {
	p := msg.State
	switch msg.Subtype {
	case events.StateStartState:
		m := c.world.machine
		m.SetOther(p.Other)
		m.SetVictim(p.Victim)
		if p.Waypoint != "" {
			if obj, err := m.Object(c.instance); err == nil && obj.HasField("WP") {
				_ = obj.SetString("WP", p.Waypoint)
			}
		}
		if !c.state.StartAIState(p.Function, p.EndOldState) {
			c.log.Debug("state not started", "state", p.Function)
		}
		msg.Deleted = true
	case events.StateWait:
		p.Elapsed += c.world.delta
		if p.Elapsed >= p.Seconds {
			msg.Deleted = true
		}
	case events.StateSetTime:
		c.world.clock.SetTime(p.Hour, p.Minute)
		msg.Deleted = true
	default:
		c.unsupported(msg)
	}
}

func (c *Character) onWeapon(msg *events.Message) {
	switch msg.Subtype {
	case events.WeaponDrawWeapon, events.WeaponDrawWeapon1, events.WeaponDrawWeapon2:
		c.weaponMode = max(msg.Weapon.WeaponMode, 1)
		msg.Deleted = true
	case events.WeaponRemoveWeapon, events.WeaponRemoveWeapon1, events.WeaponRemoveWeapon2, events.WeaponForceRemoveWeapon:
		c.weaponMode = 0
		msg.Deleted = true
	default:
		c.unsupported(msg)
	}
}

func (c *Character) onManipulate(msg *events.Message) {
	p := msg.Manipulate
	switch msg.Subtype {
	case events.ManipulateCallScript:
		if err := c.world.runOnSelf(p.Symbol, c.instance); err != nil {
			c.log.Debug("call script failed", "function", p.Symbol, "error", err)
		}
	case events.ManipulateTakeVob:
		if item, ok := c.world.items[p.Mob]; ok && geom.Distance(item.position, c.position) <= freepointSearchRadius {
			c.log.Info("takes item", "item", item.symbol)
			c.world.removeItem(item)
		}
	default:
		c.log.Debug("manipulation ignored", "message", msg.String())
	}
	msg.Deleted = true
}
