package core

import (
	"fmt"
	"sync"
	"time"
)

// EventKind names what happened to an entity.
type EventKind string

const (
	EventSubmissionUploaded    EventKind = "submission.uploaded"
	EventSubmissionMarkedFinal EventKind = "submission.marked_final"
	EventSubmissionApproved    EventKind = "submission.approved"
	EventRevisionRequested     EventKind = "submission.revision_requested"
	EventSubmissionLocked      EventKind = "submission.locked_for_eval"
	EventEvaluationStarted     EventKind = "submission.eval_started"
	EventEvaluationFinalized   EventKind = "submission.eval_finalized"
	EventMarksSubmitted        EventKind = "evaluation.marks_submitted"
	EventMarksFinalized        EventKind = "evaluation.marks_finalized"
	EventResultComputed        EventKind = "result.computed"
	EventResultReleased        EventKind = "result.released"
	EventDocumentTypeChanged   EventKind = "doctype.changed"
	EventDeadlineBatchChanged  EventKind = "deadline.batch_changed"
)

// Event describes a state transition or score computation, for collaborators to deliver or persist.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Entity    string                 `json:"entity"`
	EntityID  string                 `json:"entity_id"`
	ProjectID string                 `json:"project_id,omitempty"`
	OldState  string                 `json:"old_state,omitempty"`
	NewState  string                 `json:"new_state,omitempty"`
	Actor     Actor                  `json:"actor"`
	At        time.Time              `json:"at"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s=%s %q->%q by %s", e.Kind, e.Entity, e.EntityID, e.OldState, e.NewState, e.Actor.ID)
}

type (
	// Subscriber receives published events. It must not block for long.
	Subscriber interface {
		Handle(evt Event)
	}

	// SubscriberFunc adapts a func to the Subscriber interface.
	SubscriberFunc func(evt Event)

	// EventPublisher is what services emit events through.
	EventPublisher interface {
		// Publish never blocks on subscribers.
		Publish(events ...Event)
	}
)

func (f SubscriberFunc) Handle(evt Event) { f(evt) }

// EventBus fans events out to its subscribers.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	logger      Logger
	synchronous bool
	wg          sync.WaitGroup
}

var _ EventPublisher = (*EventBus)(nil)

// NewEventBus returns a fire-and-forget bus: every delivery runs on its own goroutine.
func NewEventBus(logger Logger) *EventBus {
	return &EventBus{logger: logger}
}

// NewSyncEventBus delivers on the publishing goroutine (for tests & CLI).
func NewSyncEventBus(logger Logger) *EventBus {
	return &EventBus{logger: logger, synchronous: true}
}

func (bus *EventBus) Subscribe(subs ...Subscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers = append(bus.subscribers, subs...)
}

func (bus *EventBus) Publish(events ...Event) {
	bus.mu.RLock()
	subs := make([]Subscriber, len(bus.subscribers))
	copy(subs, bus.subscribers)
	bus.mu.RUnlock()

	for _, evt := range events {
		for _, sub := range subs {
			if bus.synchronous {
				bus.deliver(sub, evt)
				continue
			}
			bus.wg.Add(1)
			go func(sub Subscriber, evt Event) {
				defer bus.wg.Done()
				bus.deliver(sub, evt)
			}(sub, evt)
		}
	}
}

// Wait blocks until in-flight deliveries are done (used on shutdown).
func (bus *EventBus) Wait() {
	bus.wg.Wait()
}

func (bus *EventBus) deliver(sub Subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil && bus.logger != nil {
			bus.logger.Error(fmt.Sprintf("event subscriber panicked on %s: %v", evt.Kind, r))
		}
	}()
	sub.Handle(evt)
}
