package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports malformed input.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			msgs := make([]string, 0, len(err.Fields))
			for _, f := range err.Fields {
				msgs = append(msgs, f.Field+": "+f.Error)
			}
			return "validation failed: " + strings.Join(msgs, "; ")
		}
		return ""
	}
	return err.Err.Error()
}

// StateConflictError reports an action that is not permitted from the entity's current state.
type StateConflictError struct {
	Entity  string
	ID      string
	Current string
	Action  string
}

func NewStateConflictError(entity, id, current, action string) error {
	return &StateConflictError{Entity: entity, ID: id, Current: current, Action: action}
}

func (err StateConflictError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s while %s", err.Entity, err.ID, err.Action, err.Current)
}

// ConflictError reports the violation of a uniqueness or one-way invariant.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func NewConflictError(entity, id, reason string) error {
	return &ConflictError{Entity: entity, ID: id, Reason: reason}
}

func (err ConflictError) Error() string {
	if err.ID == "" {
		return fmt.Sprintf("%s: %s", err.Entity, err.Reason)
	}
	return fmt.Sprintf("%s %s: %s", err.Entity, err.ID, err.Reason)
}

// NotFoundError reports a reference to an entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func (err NotFoundError) Error() string {
	if err.ID == "" {
		return err.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", err.Entity, err.ID)
}

// BusinessRuleError reports a structurally valid operation that violates a policy.
type BusinessRuleError struct {
	Rule   string
	Detail string
}

func NewBusinessRuleError(rule, detail string) error {
	return &BusinessRuleError{Rule: rule, Detail: detail}
}

func (err BusinessRuleError) Error() string {
	if err.Detail == "" {
		return err.Rule
	}
	return err.Rule + ": " + err.Detail
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsStateConflict(err error) bool {
	_, ok := errors.Cause(err).(*StateConflictError)
	return ok
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsBusinessRule(err error) bool {
	_, ok := errors.Cause(err).(*BusinessRuleError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
