package boardctl

import (
	"context"
	"errors"

	"github.com/eventboard/project/internal/board"
)

var (
	ErrLoad               = errors.New("failed to load events")
	ErrPersistence        = errors.New("failed to save event")
	ErrInvariantViolation = errors.New("event has no store key")
	ErrFieldRequired      = errors.New("required field is missing")
)

// Snapshot is one push from the store: the full collection, or the error
// that ended the stream.
type Snapshot struct {
	Events []board.Event
	Err    error
}

// Store is the live collection the controller reads from and writes to.
type Store interface {
	// Subscribe delivers the current collection immediately and again after
	// every change until unsubscribe is called.
	Subscribe(ctx context.Context) (<-chan Snapshot, func(), error)
	Create(ctx context.Context, event board.Event) error
	Update(ctx context.Context, storeKey string, event board.Event) error
	Delete(ctx context.Context, storeKey string) error
	// BatchCreate writes all events or none.
	BatchCreate(ctx context.Context, events []board.Event) error
}

// View paints what the controller publishes.
type View interface {
	Render(vm ViewModel)
	OpenForm(form Form)
	CloseForm()
	ReportError(err error)
}

// ConfirmFunc asks the user to approve a destructive action.
type ConfirmFunc func(prompt string) bool

const DeletePrompt = "Are you sure you want to delete this event?"
