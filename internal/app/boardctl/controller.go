package boardctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eventboard/project/internal/board"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Controller drives one viewer's board. All methods are safe for concurrent
// use; View callbacks happen with the controller lock held and must not call
// back into the controller.
type Controller struct {
	Store  Store
	View   View
	Engine *board.Engine
	Logger *zap.Logger
	NewID  func() string

	mu          sync.Mutex
	state       State
	unsubscribe func()
	closed      bool
	loadFailed  bool
}

func New(store Store, view View, engine *board.Engine, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		Store:  store,
		View:   view,
		Engine: engine,
		Logger: logger,
		NewID:  uuid.NewString,
		state:  initialState(),
	}
}

// Run subscribes to the store and applies snapshots until ctx is done, the
// stream ends or Close is called. It holds exactly one subscription.
func (c *Controller) Run(ctx context.Context) error {
	snapshots, unsubscribe, err := c.Store.Subscribe(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrLoad, err)
		c.Logger.Error("event subscription failed", zap.Error(err))
		c.report(err)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		unsubscribe()
		return nil
	}
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			if snap.Err != nil {
				c.onLoadError(snap.Err)
				continue
			}
			c.OnStoreSnapshot(ctx, snap.Events)
		}
	}
}

// Close releases the store subscription. It is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.closed = true
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) onLoadError(err error) {
	c.mu.Lock()
	first := !c.loadFailed
	c.loadFailed = true
	c.mu.Unlock()

	err = fmt.Errorf("%w: %w", ErrLoad, err)
	c.Logger.Error("error loading events", zap.Error(err))
	if first {
		c.report(err)
	}
}

// OnStoreSnapshot replaces the record set with records and republishes the
// view. The first snapshot of an empty collection seeds the sample events.
func (c *Controller) OnStoreSnapshot(ctx context.Context, records []board.Event) {
	c.mu.Lock()
	var seed bool
	c.state, seed = applySnapshot(c.state, records)
	c.loadFailed = false
	c.publishLocked()
	c.mu.Unlock()

	if seed {
		c.seed(ctx)
	}
}

func (c *Controller) seed(ctx context.Context) {
	events, err := board.SeedEvents(c.NewID)
	if err == nil {
		err = c.Store.BatchCreate(ctx, events)
	}
	if err != nil {
		err = fmt.Errorf("%w: seed sample events: %w", ErrPersistence, err)
		c.Logger.Error("error initializing sample events", zap.Error(err))
		c.report(err)
		return
	}
	c.Logger.Info("sample events initialized", zap.Int("count", len(events)))
}

func (c *Controller) SetFilter(patch board.FilterPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = applyFilterPatch(c.state, patch)
	c.publishLocked()
}

func (c *Controller) ClearFilter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = resetFilter(c.state)
	c.publishLocked()
}

// Refresh recomputes the view without changing state; the upcoming/past
// split depends on the current date.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishLocked()
}

func (c *Controller) BeginCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var form Form
	c.state, form = openCreate(c.state)
	c.View.OpenForm(form)
}

// BeginEdit opens the edit form for id. Unknown ids are ignored.
func (c *Controller) BeginEdit(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, form, ok := openEdit(c.state, id)
	if !ok {
		return
	}
	c.state = next
	c.View.OpenForm(form)
}

// Cancel closes any open form.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Form == FormClosed {
		return
	}
	c.state = closeForm(c.state)
	c.View.CloseForm()
}

// Submit saves the open form. The form stays open when the store rejects
// the write.
func (c *Controller) Submit(ctx context.Context, values FormValues) error {
	c.mu.Lock()
	mode := c.state.Form
	target := c.state.EditTarget
	seq := c.state.FormSeq
	existing, found := board.FindByID(c.state.Records, target)
	c.mu.Unlock()

	candidate, err := candidateFromForm(values)
	if err != nil {
		c.report(err)
		return err
	}

	if mode == FormEdit {
		err = c.update(ctx, target, existing, found, candidate)
	} else {
		candidate.ID = c.NewID()
		if storeErr := c.Store.Create(ctx, candidate); storeErr != nil {
			err = fmt.Errorf("%w: %w", ErrPersistence, storeErr)
		}
	}
	if err != nil {
		c.Logger.Error("error saving event", zap.String("event_id", candidate.ID), zap.Error(err))
		c.report(err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.FormSeq == seq {
		c.state = closeForm(c.state)
		c.View.CloseForm()
	}
	return nil
}

func (c *Controller) update(ctx context.Context, target string, existing board.Event, found bool, candidate board.Event) error {
	if !found {
		return fmt.Errorf("%w: event %s no longer exists", ErrPersistence, target)
	}
	candidate.ID = existing.ID
	if !existing.Synced() {
		err := fmt.Errorf("%w: %w: %s", ErrPersistence, ErrInvariantViolation, existing.ID)
		c.Logger.DPanic("update of unsynced event", zap.String("event_id", existing.ID))
		return err
	}
	if err := c.Store.Update(ctx, existing.StoreKey, candidate); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Remove deletes the record with id once confirm approves. Records never
// synced to the store are skipped silently.
func (c *Controller) Remove(ctx context.Context, id string, confirm ConfirmFunc) error {
	if confirm == nil || !confirm(DeletePrompt) {
		return nil
	}

	c.mu.Lock()
	record, ok := board.FindByID(c.state.Records, id)
	c.mu.Unlock()
	if !ok || !record.Synced() {
		return nil
	}

	if err := c.Store.Delete(ctx, record.StoreKey); err != nil {
		err = fmt.Errorf("%w: delete %s: %w", ErrPersistence, id, err)
		c.Logger.Error("error deleting event", zap.String("event_id", id), zap.Error(err))
		c.report(err)
		return err
	}
	return nil
}

// State returns a copy of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ViewModel returns the current filtered view.
func (c *Controller) ViewModel() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return visible(c.state, c.Engine)
}

func (c *Controller) publishLocked() {
	c.View.Render(visible(c.state, c.Engine))
}

func (c *Controller) report(err error) {
	if errors.Is(err, ErrInvariantViolation) {
		return
	}
	c.View.ReportError(err)
}

func candidateFromForm(values FormValues) (board.Event, error) {
	required := []struct {
		name  string
		value string
	}{
		{"title", values.Title},
		{"date", values.Date},
		{"hour", values.Hour},
		{"minute", values.Minute},
		{"category", values.Category},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return board.Event{}, fmt.Errorf("%w: %s", ErrFieldRequired, field.name)
		}
	}

	return board.Event{
		Title:       strings.TrimSpace(values.Title),
		Date:        strings.TrimSpace(values.Date),
		Time:        board.JoinTime(values.Hour, values.Minute),
		Location:    strings.TrimSpace(values.Location),
		Description: strings.TrimSpace(values.Description),
		Category:    board.Category(strings.TrimSpace(values.Category)),
	}, nil
}
