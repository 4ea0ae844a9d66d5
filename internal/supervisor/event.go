package supervisor

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// subscriberBuffer is the number of events a subscriber may lag behind
// before events are dropped.
const subscriberBuffer = 64

// Event is emitted on every state transition.
type Event struct {
	// ID uniquely identifies the event
	ID string

	// State is the state the supervisor transitioned to
	State State

	// Time is the time of the transition
	Time time.Time

	// Detail is a human readable description of the transition
	Detail string

	// Err is the error that caused the transition, if any
	Err error

	// Pid is the pid of the node the transition refers to
	Pid int

	// StopFailed is set on Crashed if the node could not be stopped
	StopFailed bool

	// ExitDetectedAt is set on Crashed to the time the exit was detected
	ExitDetectedAt time.Time
}

type broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
	log    *zap.Logger
}

func newBroker(log *zap.Logger) *broker {
	return &broker{
		subs: make(map[int]chan Event),
		log:  log,
	}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// publish never blocks. Subscribers that do not keep up miss events.
func (b *broker) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.log.Warn("dropping event for slow subscriber",
				zap.Int("subscriber", id),
				zap.Stringer("state", e.State),
			)
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
