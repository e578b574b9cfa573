// Package events implements the per-actor action queue.
//
// Actions are Messages. A message is a tagged union: Type selects which one
// of the payload pointers is populated and Subtype selects the concrete
// action within that family.
package events

import (
	"fmt"

	"regoth/internal/daedalus/objects"
	"regoth/internal/geom"
)

// MessageType enumerates the message families.
type MessageType int

const (
	TypeNpc MessageType = iota
	TypeDamage
	TypeWeapon
	TypeMovement
	TypeAttack
	TypeUseItem
	TypeState
	TypeManipulate
	TypeConversation
	TypeMagic
	TypeMob
)

var typeNames = [...]string{
	TypeNpc:          "Npc",
	TypeDamage:       "Damage",
	TypeWeapon:       "Weapon",
	TypeMovement:     "Movement",
	TypeAttack:       "Attack",
	TypeUseItem:      "UseItem",
	TypeState:        "State",
	TypeManipulate:   "Manipulate",
	TypeConversation: "Conversation",
	TypeMagic:        "Magic",
	TypeMob:          "Mob",
}

func (t MessageType) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// Movement subtypes.
const (
	MovementRobustTrace = iota
	MovementGotoPos
	MovementGotoVob
	MovementGoRoute
	MovementTurn
	MovementTurnToPos
	MovementTurnToVob
	MovementTurnAway
	MovementJump
	MovementSetWalkMode
	MovementWhirlAround
	MovementStandup
	MovementCanSeeNpc
	MovementStrafe
	MovementGotoFP
	MovementDodge
	MovementBeamTo
	MovementAlignToFP
)

// Conversation subtypes.
const (
	ConversationPlayAniSound = iota
	ConversationPlayAni
	ConversationPlaySound
	ConversationLookAt
	ConversationOutput
	ConversationOutputSVM
	ConversationCutscene
	ConversationWaitTillEnd
	ConversationAsk
	ConversationWaitForQuestion
	ConversationStopLookAt
	ConversationStopPointAt
	ConversationPointAt
	ConversationQuickLook
	ConversationPlayAniNoOverlay
	ConversationPlayAniFace
	ConversationProcessInfos
	ConversationStopProcessInfos
	ConversationOutputSVMOverlay
)

// Weapon subtypes.
const (
	WeaponDrawWeapon = iota
	WeaponDrawWeapon1
	WeaponDrawWeapon2
	WeaponRemoveWeapon
	WeaponRemoveWeapon1
	WeaponRemoveWeapon2
	WeaponChooseWeapon
	WeaponForceRemoveWeapon
	WeaponAttack
	WeaponEquipBestWeapon
	WeaponEquipBestArmor
	WeaponUnequipWeapons
	WeaponUnequipArmor
	WeaponEquipArmor
)

// State subtypes.
const (
	StateStartState = iota
	StateWait
	StateSetNpcsToState
	StateSetTime
	StateApplyTimedOverlay
)

// Damage subtypes.
const (
	DamageOnce = iota
	DamagePerFrame
)

// Attack subtypes.
const (
	AttackForward = iota
	AttackLeft
	AttackRight
	AttackRun
	AttackFinish
	AttackParade
	AttackAimAt
	AttackShootAt
	AttackStopAim
	AttackDefend
	AttackBow
	AttackMagic
)

// UseItem subtypes.
const (
	UseItemDrink = iota
	UseItemEquipItem
	UseItemUnequipItem
)

// Manipulate subtypes.
const (
	ManipulateTakeVob = iota
	ManipulateDropVob
	ManipulateThrowVob
	ManipulateExchange
	ManipulateUseMob
	ManipulateUseItem
	ManipulateInsertInteractItem
	ManipulateRemoveInteractItem
	ManipulateCreateInteractItem
	ManipulateDestroyInteractItem
	ManipulatePlaceInteractItem
	ManipulateExchangeInteractItem
	ManipulateUseMobWithItem
	ManipulateCallScript
	ManipulateEquipItem
	ManipulateUseItemToState
	ManipulateTakeMob
	ManipulateDropMob
)

// Magic subtypes.
const (
	MagicOpen = iota
	MagicClose
	MagicMove
	MagicInvest
	MagicCast
	MagicSetLevel
	MagicShowSymbol
	MagicSetFrontSpell
	MagicCastSpell
	MagicReady
	MagicUnready
)

// Mob subtypes.
const (
	MobStartInteraction = iota
	MobStartStateChange
	MobEndInteraction
	MobUnlock
	MobLock
	MobCallScript
)

// WalkMode is the gait of a moving character.
type WalkMode int

const (
	WalkModeRun WalkMode = iota
	WalkModeWalk
	WalkModeSneak
	WalkModeWater
	WalkModeSwim
	WalkModeDive
)

// ConversationStatus tracks a playing dialogue line.
type ConversationStatus int

const (
	ConversationInit ConversationStatus = iota
	ConversationPlaying
	ConversationFadingOut
)

func (s ConversationStatus) String() string {
	switch s {
	case ConversationInit:
		return "INIT"
	case ConversationPlaying:
		return "PLAYING"
	case ConversationFadingOut:
		return "FADING_OUT"
	default:
		return fmt.Sprintf("ConversationStatus(%d)", int(s))
	}
}

type DamagePayload struct {
	Amount int32
	Kind   int
}

type WeaponPayload struct {
	WeaponMode int
}

type MovementPayload struct {
	WalkMode        WalkMode
	TargetWaypoint  string
	TargetFreepoint string
	TargetVob       objects.NativeHandle
	TargetPosition  geom.Vec3
	Route           []string
	Started         bool
}

type AttackPayload struct {
	Combo     int
	Animation string
}

type UseItemPayload struct {
	Item objects.Handle
}

type StatePayload struct {
	Function    string
	EndOldState bool
	Other       objects.Handle
	Victim      objects.Handle
	Waypoint    string
	Seconds     float64
	Elapsed     float64
	Hour        int
	Minute      int
}

type ManipulatePayload struct {
	Symbol      string
	Slot        string
	Mob         objects.NativeHandle
	TargetState int
}

type ConversationPayload struct {
	Text      string
	Name      string
	Animation string
	Target    objects.NativeHandle
	Status    ConversationStatus
	Duration  float64
	Elapsed   float64
}

type MagicPayload struct {
	SpellID int
	Level   int
}

type MobPayload struct {
	State int
	From  int
	Npc   objects.NativeHandle
}

// DoneCallback runs once when a message completes or is discarded. owner is
// the actor whose queue held the message.
type DoneCallback func(owner objects.NativeHandle, msg *Message)

// Message is one queued action.
type Message struct {
	ID      uint64
	Type    MessageType
	Subtype int

	Source objects.NativeHandle
	Target objects.NativeHandle

	IsJob bool
	// IsHighPriority runs a one-shot message at once. A high priority job
	// cannot finish on arrival, so it goes to the front of the queue and
	// still waits for its turn there.
	IsHighPriority bool
	IsOverlay      bool
	Deleted        bool

	Damage       *DamagePayload
	Weapon       *WeaponPayload
	Movement     *MovementPayload
	Attack       *AttackPayload
	UseItem      *UseItemPayload
	State        *StatePayload
	Manipulate   *ManipulatePayload
	Conversation *ConversationPayload
	Magic        *MagicPayload
	Mob          *MobPayload

	onDone []DoneCallback
	done   bool
	owner  objects.NativeHandle
}

func (m *Message) String() string {
	return fmt.Sprintf("%s/%d#%d", m.Type, m.Subtype, m.ID)
}

// OnDone subscribes cb to the completion of m. If m already completed, cb
// runs immediately.
func (m *Message) OnDone(cb DoneCallback) {
	if m.done {
		cb(m.owner, m)
		return
	}
	m.onDone = append(m.onDone, cb)
}

// IsDone reports whether the completion callbacks have fired.
func (m *Message) IsDone() bool {
	return m.done
}

func (m *Message) fireDone() {
	if m.done {
		return
	}
	m.done = true
	callbacks := m.onDone
	m.onDone = nil
	for _, cb := range callbacks {
		cb(m.owner, m)
	}
}

// clone copies m and its payload so the caller's value stays untouched.
func (m Message) clone() *Message {
	c := m
	c.onDone = nil
	c.done = false
	c.Deleted = false
	if m.Damage != nil {
		p := *m.Damage
		c.Damage = &p
	}
	if m.Weapon != nil {
		p := *m.Weapon
		c.Weapon = &p
	}
	if m.Movement != nil {
		p := *m.Movement
		p.Route = append([]string(nil), m.Movement.Route...)
		c.Movement = &p
	}
	if m.Attack != nil {
		p := *m.Attack
		c.Attack = &p
	}
	if m.UseItem != nil {
		p := *m.UseItem
		c.UseItem = &p
	}
	if m.State != nil {
		p := *m.State
		c.State = &p
	}
	if m.Manipulate != nil {
		p := *m.Manipulate
		c.Manipulate = &p
	}
	if m.Conversation != nil {
		p := *m.Conversation
		c.Conversation = &p
	}
	if m.Magic != nil {
		p := *m.Magic
		c.Magic = &p
	}
	if m.Mob != nil {
		p := *m.Mob
		c.Mob = &p
	}
	return &c
}

// NewMovement creates a movement job.
func NewMovement(subtype int, payload MovementPayload) Message {
	return Message{Type: TypeMovement, Subtype: subtype, IsJob: true, Movement: &payload}
}

// NewConversation creates a conversation job. Look-at, stop-look-at and face
// animations overlay the messages behind them.
func NewConversation(subtype int, payload ConversationPayload) Message {
	msg := Message{Type: TypeConversation, Subtype: subtype, IsJob: true, Conversation: &payload}
	switch subtype {
	case ConversationLookAt, ConversationStopLookAt, ConversationPlayAniFace, ConversationOutputSVMOverlay, ConversationQuickLook:
		msg.IsOverlay = true
	}
	return msg
}

// NewState creates a state message. Starting a state is a one-shot action,
// waiting is a job.
func NewState(subtype int, payload StatePayload) Message {
	return Message{Type: TypeState, Subtype: subtype, IsJob: subtype == StateWait, State: &payload}
}

// NewWeapon creates a weapon job.
func NewWeapon(subtype int, payload WeaponPayload) Message {
	return Message{Type: TypeWeapon, Subtype: subtype, IsJob: true, Weapon: &payload}
}

// NewDamage creates a damage message. A one-time hit is executed on arrival.
func NewDamage(subtype int, payload DamagePayload) Message {
	return Message{Type: TypeDamage, Subtype: subtype, IsJob: subtype == DamagePerFrame, IsHighPriority: true, Damage: &payload}
}

func NewAttack(subtype int, payload AttackPayload) Message {
	return Message{Type: TypeAttack, Subtype: subtype, IsJob: true, Attack: &payload}
}

func NewUseItem(subtype int, payload UseItemPayload) Message {
	return Message{Type: TypeUseItem, Subtype: subtype, IsJob: true, UseItem: &payload}
}

func NewManipulate(subtype int, payload ManipulatePayload) Message {
	return Message{Type: TypeManipulate, Subtype: subtype, IsJob: true, Manipulate: &payload}
}

func NewMagic(subtype int, payload MagicPayload) Message {
	return Message{Type: TypeMagic, Subtype: subtype, IsJob: true, Magic: &payload}
}

func NewMob(subtype int, payload MobPayload) Message {
	return Message{Type: TypeMob, Subtype: subtype, IsJob: true, Mob: &payload}
}
