package events

import (
	"log/slog"

	"regoth/internal/daedalus/objects"
	"regoth/internal/log"
)

// Host executes the actions delivered by a Queue. A job stays queued until
// the host sets Deleted on it; any other message is completed after one
// delivery.
type Host interface {
	OnExecuteEventAction(msg *Message)
}

// HostFunc adapts a function to Host.
type HostFunc func(msg *Message)

func (f HostFunc) OnExecuteEventAction(msg *Message) { f(msg) }

// Queue is the action queue of one actor.
type Queue struct {
	owner    objects.NativeHandle
	host     Host
	messages []*Message
	nextID   uint64
	log      *slog.Logger
}

// NewQueue creates the queue of owner.
func NewQueue(owner objects.NativeHandle, host Host) *Queue {
	return &Queue{
		owner:  owner,
		host:   host,
		nextID: 1,
		log:    log.With("events").With("owner", owner),
	}
}

// Owner returns the actor this queue belongs to.
func (q *Queue) Owner() objects.NativeHandle { return q.owner }

// OnMessage takes a copy of msg. A message that is no job is executed right
// away and completed; a job is queued, at the front when it is high priority.
// The stored copy is returned so callers can subscribe to its completion.
func (q *Queue) OnMessage(msg Message) *Message {
	stored := msg.clone()
	stored.ID = q.nextID
	stored.owner = q.owner
	q.nextID++

	if !stored.IsJob {
		q.host.OnExecuteEventAction(stored)
		stored.Deleted = true
		stored.fireDone()
		return stored
	}

	if stored.IsHighPriority {
		q.messages = append([]*Message{stored}, q.messages...)
	} else {
		q.messages = append(q.messages, stored)
	}
	q.log.Debug("message queued", "message", stored.String(), "len", len(q.messages))
	return stored
}

// OnMessageFromObject is OnMessage with the sender recorded as Source.
func (q *Queue) OnMessageFromObject(msg Message, source objects.NativeHandle) *Message {
	msg.Source = source
	return q.OnMessage(msg)
}

// ProcessMessageQueue runs one queue cycle: completed messages are swept
// first, then messages are delivered front to back until the first one that
// is no overlay.
func (q *Queue) ProcessMessageQueue() {
	q.sweep()
	if len(q.messages) == 0 {
		return
	}

	for i := 0; i < len(q.messages); i++ {
		msg := q.messages[i]
		if msg.Deleted {
			continue
		}

		q.host.OnExecuteEventAction(msg)
		if !msg.IsJob {
			msg.Deleted = true
		}
		if !msg.IsOverlay {
			break
		}
	}
}

// sweep fires the completion callbacks of deleted messages, then removes
// them.
func (q *Queue) sweep() {
	for _, msg := range q.messages {
		if msg.Deleted {
			msg.fireDone()
		}
	}

	live := q.messages[:0]
	for _, msg := range q.messages {
		if !msg.Deleted {
			live = append(live, msg)
		}
	}
	for i := len(live); i < len(q.messages); i++ {
		q.messages[i] = nil
	}
	q.messages = live
}

// WaitForMessage makes this actor wait until other completes, e.g. until
// another NPC finished a dialogue line. It returns the wait job or nil when
// other has already completed.
func (q *Queue) WaitForMessage(other *Message) *Message {
	if other == nil || other.IsDone() {
		return nil
	}

	wait := q.OnMessage(NewConversation(ConversationWaitTillEnd, ConversationPayload{Target: other.owner}))
	other.OnDone(func(objects.NativeHandle, *Message) {
		wait.Deleted = true
	})
	return wait
}

// IsEmpty reports whether no live message is pending.
func (q *Queue) IsEmpty() bool {
	for _, msg := range q.messages {
		if !msg.Deleted {
			return false
		}
	}
	return true
}

// Len returns the number of stored messages, including deleted ones that
// were not swept yet.
func (q *Queue) Len() int {
	return len(q.messages)
}

// Messages returns the stored messages in delivery order.
func (q *Queue) Messages() []*Message {
	out := make([]*Message, len(q.messages))
	copy(out, q.messages)
	return out
}

// Front returns the first live message, or nil.
func (q *Queue) Front() *Message {
	for _, msg := range q.messages {
		if !msg.Deleted {
			return msg
		}
	}
	return nil
}

// Back returns the last live message, or nil.
func (q *Queue) Back() *Message {
	for i := len(q.messages) - 1; i >= 0; i-- {
		if !q.messages[i].Deleted {
			return q.messages[i]
		}
	}
	return nil
}

// Clear discards every message. Completion callbacks fire, so actors
// waiting on one of them are released.
func (q *Queue) Clear() {
	messages := q.messages
	q.messages = nil
	for _, msg := range messages {
		msg.Deleted = true
		msg.fireDone()
	}
	if len(messages) > 0 {
		q.log.Debug("queue cleared", "discarded", len(messages))
	}
}
