package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type nopLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *nopLogger) Debug(string, ...interface{}) {}
func (l *nopLogger) Info(string, ...interface{})  {}
func (l *nopLogger) Warn(string, ...interface{})  {}
func (l *nopLogger) Fatal(string, ...interface{}) {}
func (l *nopLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func TestEventBus_Publish(t *testing.T) {
	tests := []struct {
		name string
		bus  func(Logger) *EventBus
	}{
		{name: "sync", bus: NewSyncEventBus},
		{name: "async", bus: NewEventBus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := new(nopLogger)
			bus := tt.bus(logger)

			var (
				mu   sync.Mutex
				got  []EventKind
				seen int
			)
			bus.Subscribe(
				SubscriberFunc(func(evt Event) {
					mu.Lock()
					got = append(got, evt.Kind)
					mu.Unlock()
				}),
				SubscriberFunc(func(evt Event) { panic("boom") }),
				SubscriberFunc(func(evt Event) {
					mu.Lock()
					seen++
					mu.Unlock()
				}),
			)

			bus.Publish(
				Event{Kind: EventSubmissionUploaded},
				Event{Kind: EventSubmissionApproved},
			)
			bus.Wait()

			assert.ElementsMatch(t, []EventKind{EventSubmissionUploaded, EventSubmissionApproved}, got)
			assert.Equal(t, 2, seen)
			assert.Len(t, logger.errors, 2) // one per panicking delivery
		})
	}
}

func TestEvent_String(t *testing.T) {
	evt := Event{
		Kind:     EventSubmissionApproved,
		Entity:   "submission",
		EntityID: "42",
		OldState: "PENDING_SUPERVISOR",
		NewState: "APPROVED_BY_SUPERVISOR",
		Actor:    Actor{ID: "sup-1", Role: RoleSupervisor},
	}
	assert.Equal(t, `submission.approved submission=42 "PENDING_SUPERVISOR"->"APPROVED_BY_SUPERVISOR" by sup-1`, evt.String())
}

func TestIsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{name: "validation", err: NewValidationError(nil, FieldError{Field: "f", Error: "bad"}), is: IsValidation},
		{name: "state conflict", err: NewStateConflictError("submission", "1", "EVAL_FINALIZED", "score"), is: IsStateConflict},
		{name: "conflict", err: NewConflictError("final result", "p1", "already released"), is: IsConflict},
		{name: "not found", err: NewNotFoundError("project", "p1"), is: IsNotFound},
		{name: "business rule", err: NewBusinessRuleError("missing document submissions", "SRS"), is: IsBusinessRule},
	}
	checks := []func(error) bool{IsValidation, IsStateConflict, IsConflict, IsNotFound, IsBusinessRule}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := 0
			for _, check := range checks {
				if check(tt.err) {
					matches++
				}
			}
			assert.True(t, tt.is(tt.err))
			assert.Equal(t, 1, matches, "error kinds must be exclusive")
		})
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 87.0, Round2(86.999))
	assert.Equal(t, 70.33, Round2(211.0/3))
	assert.Equal(t, 0.0, Round2(0))
}
