package eventstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eventboard/project/internal/app/boardctl"
	"github.com/eventboard/project/internal/sharding"
	"go.uber.org/zap"
)

const (
	snapshotDebounce   = 75 * time.Millisecond
	snapshotMaxDelay   = 250 * time.Millisecond
	subscriberBuffer   = 16
	refreshListTimeout = 3 * time.Second
)

// hub shares one change-feed subscription between every local subscriber
// and turns bursts of change notifications into one re-read of the
// collection.
type hub struct {
	repo   Repository
	feed   ChangeFeed
	logger *zap.Logger

	// listMu orders list-and-deliver rounds so a subscriber never receives
	// an older collection after a newer one.
	listMu sync.Mutex

	mu           sync.Mutex
	stopFeed     func() error
	subscribers  map[uint64]chan boardctl.Snapshot
	nextID       uint64
	pendingSeq   uint64
	pendingSince time.Time
	refreshTimer *time.Timer
}

func newHub(repo Repository, feed ChangeFeed, logger *zap.Logger) *hub {
	return &hub{
		repo:        repo,
		feed:        feed,
		logger:      logger,
		subscribers: map[uint64]chan boardctl.Snapshot{},
	}
}

func (h *hub) subscribe(ctx context.Context) (<-chan boardctl.Snapshot, func(), error) {
	ch := make(chan boardctl.Snapshot, subscriberBuffer)

	h.mu.Lock()
	h.nextID++
	subID := h.nextID
	h.subscribers[subID] = ch
	h.mu.Unlock()

	if err := h.ensureFeed(); err != nil {
		h.remove(subID)
		return nil, nil, err
	}

	h.listMu.Lock()
	events, err := h.repo.List(ctx)
	if err == nil {
		ch <- boardctl.Snapshot{Events: events}
	}
	h.listMu.Unlock()
	if err != nil {
		h.remove(subID)
		return nil, nil, fmt.Errorf("initial snapshot: %w", err)
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { h.remove(subID) })
	}
	return ch, unsubscribe, nil
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *hub) remove(subID uint64) {
	var (
		stop  func() error
		timer *time.Timer
	)

	h.mu.Lock()
	delete(h.subscribers, subID)
	if len(h.subscribers) == 0 {
		stop = h.stopFeed
		timer = h.refreshTimer
		h.stopFeed = nil
		h.refreshTimer = nil
		h.pendingSeq = 0
		h.pendingSince = time.Time{}
	}
	h.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if stop != nil {
		if err := stop(); err != nil {
			h.logger.Warn("change feed unsubscribe failed", zap.Error(err))
		}
	}
}

func (h *hub) ensureFeed() error {
	h.mu.Lock()
	if h.stopFeed != nil {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	if h.feed == nil {
		return fmt.Errorf("change feed is not configured")
	}

	stop, err := h.feed.Subscribe(sharding.CollectionSubject(Collection), func(_ []byte, seq uint64) {
		h.scheduleRefresh(seq)
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.stopFeed != nil || len(h.subscribers) == 0 {
		h.mu.Unlock()
		_ = stop()
		return nil
	}
	h.stopFeed = stop
	h.mu.Unlock()
	return nil
}

func (h *hub) scheduleRefresh(seq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subscribers) == 0 {
		return
	}
	if seq > h.pendingSeq {
		h.pendingSeq = seq
	}
	if h.refreshTimer == nil {
		h.pendingSince = time.Now()
		h.refreshTimer = time.AfterFunc(snapshotDebounce, h.runRefresh)
		return
	}
	// A steady stream of changes must not postpone the refresh forever.
	delay := min(snapshotDebounce, snapshotMaxDelay-time.Since(h.pendingSince))
	if delay <= 0 {
		return
	}
	h.refreshTimer.Reset(delay)
}

func (h *hub) runRefresh() {
	h.mu.Lock()
	seq := h.pendingSeq
	h.pendingSeq = 0
	h.pendingSince = time.Time{}
	h.refreshTimer = nil
	hasSubscribers := len(h.subscribers) > 0
	h.mu.Unlock()

	if !hasSubscribers {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshListTimeout)
	defer cancel()

	h.listMu.Lock()
	defer h.listMu.Unlock()
	events, err := h.repo.List(ctx)
	if err != nil {
		h.logger.Error("event snapshot refresh failed", zap.Uint64("seq", seq), zap.Error(err))
		h.broadcast(boardctl.Snapshot{Err: err})
		return
	}
	h.broadcast(boardctl.Snapshot{Events: events})
}

// broadcast never blocks: a full subscriber loses its oldest pending
// snapshot, which the new one supersedes.
func (h *hub) broadcast(snap boardctl.Snapshot) {
	h.mu.Lock()
	subs := make([]chan boardctl.Snapshot, 0, len(h.subscribers))
	for _, ch := range h.subscribers {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
