package reconcile

import (
	"errors"
	"time"

	"domain-manager/core/names"
)

// Action is the kind of record mutation.
type Action string

const (
	// ActionSet writes a value.
	ActionSet Action = "set"
	// ActionDelete removes the record.
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionSet || a == ActionDelete
}

// State is the lifecycle position of an edit.
type State string

const (
	StateIdle       State = "idle"
	StatePending    State = "pending"
	StateCommitting State = "committing"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
)

var (
	// ErrNotRetryable is returned by Retry for edits the ledger rejected.
	ErrNotRetryable = errors.New("edit is not retryable")
	// ErrUnknownEdit is returned when no edit exists for the key.
	ErrUnknownEdit = errors.New("no edit for record")
	// ErrEditActive is returned when dismissing an edit that has not settled.
	ErrEditActive = errors.New("edit is still in progress")
)

// Intent is a requested record mutation.
type Intent struct {
	Entity names.EntityID  `json:"entity"`
	Key    names.RecordKey `json:"key"`
	Action Action          `json:"action"`
	// Value is ignored for ActionDelete.
	Value string `json:"value,omitempty"`
}

// Validate checks the intent before it is accepted.
func (i Intent) Validate() error {
	if i.Entity == "" {
		return names.NewError(names.KindInvalidInput, "submit", "entity id is required", nil)
	}
	if !i.Key.Valid() {
		return names.NewError(names.KindInvalidInput, "submit", "unknown record key "+string(i.Key), nil)
	}
	if !i.Action.Valid() {
		return names.NewError(names.KindInvalidInput, "submit", "unknown action "+string(i.Action), nil)
	}
	return nil
}

// Edit is a copy of the state of one submitted intent.
type Edit struct {
	ID     string          `json:"id"`
	Entity names.EntityID  `json:"entity"`
	Key    names.RecordKey `json:"key"`
	Action Action          `json:"action"`
	Value  string          `json:"value,omitempty"`
	State  State           `json:"state"`

	// Superseded is set when a newer intent replaced this one while it was committing.
	Superseded bool `json:"superseded,omitempty"`

	Err   error      `json:"-"`
	Error string     `json:"error,omitempty"`
	Kind  names.Kind `json:"kind,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Retryable reports whether Retry would accept the edit.
func (e Edit) Retryable() bool {
	return e.State == StateFailed && names.IsRetryable(e.Err)
}
