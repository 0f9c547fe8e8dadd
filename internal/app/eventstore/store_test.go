package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eventboard/project/internal/app/boardctl"
	"github.com/eventboard/project/internal/board"
	"github.com/eventboard/project/internal/contracts"
	"github.com/eventboard/project/internal/sharding"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	mu        sync.Mutex
	rows      []board.Event
	listCalls int
	listErr   error
	writeErr  error
}

func (f *fakeRepository) List(context.Context) ([]board.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]board.Event(nil), f.rows...), nil
}

func (f *fakeRepository) Insert(_ context.Context, event board.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.rows = append(f.rows, event)
	return nil
}

func (f *fakeRepository) InsertBatch(_ context.Context, events []board.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.rows = append(f.rows, events...)
	return nil
}

func (f *fakeRepository) Update(_ context.Context, event board.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].StoreKey == event.StoreKey {
			f.rows[i] = event
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepository) Delete(_ context.Context, storeKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].StoreKey == storeKey {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRepository) setListErr(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

func (f *fakeRepository) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fakeFeed struct {
	mu      sync.Mutex
	subject string
	handler func([]byte, uint64)
	active  int
	stopped int
	subErr  error
}

func (f *fakeFeed) Subscribe(subject string, handler func([]byte, uint64)) (func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.subject = subject
	f.handler = handler
	f.active++
	return func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.active--
		f.stopped++
		return nil
	}, nil
}

func (f *fakeFeed) deliver(seq uint64) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	handler(nil, seq)
}

func (f *fakeFeed) activeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

type published struct {
	subject string
	change  contracts.EventChange
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (r *recorder) publish(subject string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	var change contracts.EventChange
	if err := json.Unmarshal(payload, &change); err != nil {
		return err
	}
	r.msgs = append(r.msgs, published{subject: subject, change: change})
	return nil
}

func newTestStore(repo *fakeRepository, feed *fakeFeed, pub *recorder) *Store {
	s := NewStore(repo, pub.publish, feed, nil)
	keys := 0
	s.NewKey = func() string {
		keys++
		return "key-" + string(rune('0'+keys))
	}
	s.Now = func() time.Time { return time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestCreatePublishesChange(t *testing.T) {
	repo := &fakeRepository{}
	pub := &recorder{}
	s := newTestStore(repo, &fakeFeed{}, pub)

	err := s.Create(context.Background(), board.Event{ID: "e1", Title: "Cleanup", Date: "2025-11-20", Time: "10:00", Category: board.CategoryVolunteering})
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	require.Equal(t, "key-1", repo.rows[0].StoreKey)

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	require.Equal(t, sharding.ChangeSubject(Collection, "key-1"), msg.subject)
	require.Equal(t, contracts.ActionCreated, msg.change.Action)
	require.Equal(t, Collection, msg.change.Collection)
	require.Equal(t, []string{"e1"}, msg.change.EventIDs)
	require.Equal(t, "Cleanup", msg.change.Title)
	require.Equal(t, sharding.GetShardID("key-1"), msg.change.ShardID)
	require.NotEmpty(t, msg.change.ChangeID)
}

func TestCreateRequiresID(t *testing.T) {
	pub := &recorder{}
	s := newTestStore(&fakeRepository{}, &fakeFeed{}, pub)

	err := s.Create(context.Background(), board.Event{Title: "No id"})
	require.ErrorIs(t, err, ErrIDRequired)
	require.Empty(t, pub.msgs)
}

func TestWriteFailureDoesNotPublish(t *testing.T) {
	boom := errors.New("insert failed")
	pub := &recorder{}
	s := newTestStore(&fakeRepository{writeErr: boom}, &fakeFeed{}, pub)

	err := s.Create(context.Background(), board.Event{ID: "e1"})
	require.ErrorIs(t, err, boom)
	require.Empty(t, pub.msgs)
}

func TestUpdateMissingRow(t *testing.T) {
	pub := &recorder{}
	s := newTestStore(&fakeRepository{}, &fakeFeed{}, pub)

	err := s.Update(context.Background(), "gone", board.Event{ID: "e1"})
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, pub.msgs)

	require.ErrorIs(t, s.Update(context.Background(), " ", board.Event{}), ErrStoreKeyRequired)
}

func TestUpdateAndDelete(t *testing.T) {
	repo := &fakeRepository{rows: []board.Event{{StoreKey: "k", ID: "e1", Title: "Old"}}}
	pub := &recorder{}
	s := newTestStore(repo, &fakeFeed{}, pub)

	require.NoError(t, s.Update(context.Background(), "k", board.Event{ID: "e1", Title: "New"}))
	require.Equal(t, "New", repo.rows[0].Title)
	require.Equal(t, "k", repo.rows[0].StoreKey)

	require.NoError(t, s.Delete(context.Background(), "k"))
	require.Empty(t, repo.rows)

	require.NoError(t, s.Delete(context.Background(), "k"), "deleting an absent row succeeds")

	require.Len(t, pub.msgs, 3)
	require.Equal(t, contracts.ActionUpdated, pub.msgs[0].change.Action)
	require.Equal(t, contracts.ActionDeleted, pub.msgs[1].change.Action)
	require.Empty(t, pub.msgs[1].change.EventIDs)
}

func TestBatchCreatePublishesOnce(t *testing.T) {
	repo := &fakeRepository{}
	pub := &recorder{}
	s := newTestStore(repo, &fakeFeed{}, pub)

	err := s.BatchCreate(context.Background(), []board.Event{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	require.Len(t, repo.rows, 2)
	require.NotEqual(t, repo.rows[0].StoreKey, repo.rows[1].StoreKey)

	require.Len(t, pub.msgs, 1)
	require.Equal(t, contracts.ActionSeeded, pub.msgs[0].change.Action)
	require.Equal(t, []string{"a", "b"}, pub.msgs[0].change.EventIDs)

	require.NoError(t, s.BatchCreate(context.Background(), nil))
	require.Len(t, pub.msgs, 1)
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	repo := &fakeRepository{rows: []board.Event{{StoreKey: "k", ID: "e1"}}}
	feed := &fakeFeed{}
	s := newTestStore(repo, feed, &recorder{})

	ch, unsubscribe, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer unsubscribe()

	snap := <-ch
	require.NoError(t, snap.Err)
	require.Len(t, snap.Events, 1)
	require.Equal(t, sharding.CollectionSubject(Collection), feed.subject)
	require.Equal(t, 1, s.Subscribers())
}

func TestChangeBurstCoalesces(t *testing.T) {
	repo := &fakeRepository{}
	feed := &fakeFeed{}
	s := newTestStore(repo, feed, &recorder{})

	ch, unsubscribe, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer unsubscribe()
	<-ch

	require.NoError(t, repo.Insert(context.Background(), board.Event{StoreKey: "k", ID: "e1"}))
	for seq := uint64(1); seq <= 5; seq++ {
		feed.deliver(seq)
	}

	var snap boardctl.Snapshot
	select {
	case snap = <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after change burst")
	}
	require.Len(t, snap.Events, 1)
	require.Equal(t, 2, repo.calls())
}

func TestSteadyChangesStillRefresh(t *testing.T) {
	repo := &fakeRepository{}
	feed := &fakeFeed{}
	s := newTestStore(repo, feed, &recorder{})

	ch, unsubscribe, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer unsubscribe()
	<-ch

	require.NoError(t, repo.Insert(context.Background(), board.Event{StoreKey: "k", ID: "e1"}))

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for seq := uint64(1); ; seq++ {
			select {
			case <-done:
				return
			case <-ticker.C:
				feed.deliver(seq)
			}
		}
	}()

	select {
	case snap := <-ch:
		require.NoError(t, snap.Err)
		require.Len(t, snap.Events, 1)
	case <-time.After(snapshotMaxDelay + 500*time.Millisecond):
		t.Fatal("no snapshot while changes kept arriving")
	}
}

func TestRefreshErrorIsDelivered(t *testing.T) {
	repo := &fakeRepository{}
	feed := &fakeFeed{}
	s := newTestStore(repo, feed, &recorder{})

	ch, unsubscribe, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer unsubscribe()
	<-ch

	boom := errors.New("db down")
	repo.setListErr(boom)
	feed.deliver(7)

	select {
	case snap := <-ch:
		require.ErrorIs(t, snap.Err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an error snapshot")
	}
}

func TestPublishFailureRefreshesLocally(t *testing.T) {
	repo := &fakeRepository{}
	feed := &fakeFeed{}
	pub := &recorder{err: errors.New("nats down")}
	s := newTestStore(repo, feed, pub)

	ch, unsubscribe, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	defer unsubscribe()
	<-ch

	require.NoError(t, s.Create(context.Background(), board.Event{ID: "e1"}))

	select {
	case snap := <-ch:
		require.Len(t, snap.Events, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a local refresh after publish failure")
	}
}

func TestSubscribeInitialListFailure(t *testing.T) {
	boom := errors.New("db down")
	feed := &fakeFeed{}
	s := newTestStore(&fakeRepository{listErr: boom}, feed, &recorder{})

	_, _, err := s.Subscribe(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, s.Subscribers())
	require.Equal(t, 0, feed.activeCount())
}

func TestSubscribeFeedFailure(t *testing.T) {
	boom := errors.New("no stream")
	s := newTestStore(&fakeRepository{}, &fakeFeed{subErr: boom}, &recorder{})

	_, _, err := s.Subscribe(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, s.Subscribers())
}

func TestLastUnsubscribeStopsFeed(t *testing.T) {
	feed := &fakeFeed{}
	s := newTestStore(&fakeRepository{}, feed, &recorder{})

	_, first, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	_, second, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, feed.activeCount(), "subscribers share one feed subscription")

	first()
	first()
	require.Equal(t, 1, feed.activeCount())
	second()
	require.Equal(t, 0, feed.activeCount())
	require.Equal(t, 0, s.Subscribers())
}

func TestBroadcastReplacesOldestWhenFull(t *testing.T) {
	h := newHub(&fakeRepository{}, &fakeFeed{}, nil)
	ch := make(chan boardctl.Snapshot, 2)
	h.subscribers[1] = ch

	for i := 0; i < 3; i++ {
		h.broadcast(boardctl.Snapshot{Events: make([]board.Event, i)})
	}

	require.Len(t, (<-ch).Events, 1)
	require.Len(t, (<-ch).Events, 2)
}
