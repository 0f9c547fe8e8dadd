package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/eventboard/project/internal/app/boardctl"
	"github.com/eventboard/project/internal/board"
	"github.com/eventboard/project/internal/contracts"
	"github.com/eventboard/project/internal/sharding"
	"github.com/nats-io/nuid"
	"go.uber.org/zap"
)

// Collection names the board collection on the change feed.
const Collection = "events"

const batchKey = "batch"

var (
	ErrIDRequired       = errors.New("event id is required")
	ErrStoreKeyRequired = errors.New("store key is required")
)

type PublishFunc func(subject string, payload []byte) error

// ChangeFeed subscribes to change notifications on a subject pattern.
type ChangeFeed interface {
	Subscribe(subject string, handler func(payload []byte, seq uint64)) (func() error, error)
}

// Store is the live event collection: Postgres for the records, the change
// feed to tell every subscriber the collection moved.
type Store struct {
	Repo    Repository
	Publish PublishFunc
	Logger  *zap.Logger
	Now     func() time.Time
	NewKey  func() string

	hub *hub
}

var _ boardctl.Store = (*Store)(nil)

func NewStore(repo Repository, publish PublishFunc, feed ChangeFeed, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		Repo:    repo,
		Publish: publish,
		Logger:  logger,
		Now:     func() time.Time { return time.Now().UTC() },
		NewKey:  nuid.Next,
	}
	s.hub = newHub(repo, feed, logger)
	return s
}

// Subscribe implements boardctl.Store.
func (s *Store) Subscribe(ctx context.Context) (<-chan boardctl.Snapshot, func(), error) {
	return s.hub.subscribe(ctx)
}

// Subscribers is the number of live local subscriptions.
func (s *Store) Subscribers() int {
	return s.hub.size()
}

func (s *Store) Create(ctx context.Context, event board.Event) error {
	if strings.TrimSpace(event.ID) == "" {
		return ErrIDRequired
	}
	event.StoreKey = s.NewKey()
	if err := s.Repo.Insert(ctx, event); err != nil {
		return err
	}
	s.notify(contracts.ActionCreated, event.StoreKey, event.Title, event.ID)
	return nil
}

func (s *Store) Update(ctx context.Context, storeKey string, event board.Event) error {
	if strings.TrimSpace(storeKey) == "" {
		return ErrStoreKeyRequired
	}
	event.StoreKey = storeKey
	if err := s.Repo.Update(ctx, event); err != nil {
		return err
	}
	s.notify(contracts.ActionUpdated, storeKey, event.Title, event.ID)
	return nil
}

func (s *Store) Delete(ctx context.Context, storeKey string) error {
	if strings.TrimSpace(storeKey) == "" {
		return ErrStoreKeyRequired
	}
	if err := s.Repo.Delete(ctx, storeKey); err != nil {
		return err
	}
	s.notify(contracts.ActionDeleted, storeKey, "")
	return nil
}

// BatchCreate inserts all events in one transaction and emits a single
// change notification.
func (s *Store) BatchCreate(ctx context.Context, events []board.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := make([]board.Event, len(events))
	ids := make([]string, 0, len(events))
	for i, event := range events {
		if strings.TrimSpace(event.ID) == "" {
			return ErrIDRequired
		}
		event.StoreKey = s.NewKey()
		batch[i] = event
		ids = append(ids, event.ID)
	}
	if err := s.Repo.InsertBatch(ctx, batch); err != nil {
		return err
	}
	s.notify(contracts.ActionSeeded, batchKey, "", ids...)
	return nil
}

// notify runs after the write committed, so a publish failure is logged
// and local subscribers are refreshed directly instead.
func (s *Store) notify(action, storeKey, title string, eventIDs ...string) {
	change := contracts.EventChange{
		ChangeID:   nuid.Next(),
		Action:     action,
		Collection: Collection,
		StoreKey:   storeKey,
		EventIDs:   eventIDs,
		Title:      title,
		OccurredAt: s.Now(),
		ShardID:    sharding.GetShardID(storeKey),
	}
	payload, err := json.Marshal(change)
	if err == nil {
		err = s.Publish(sharding.ChangeSubject(Collection, storeKey), payload)
	}
	if err != nil {
		s.Logger.Warn("change notification failed", zap.String("action", action), zap.String("store_key", storeKey), zap.Error(err))
		s.hub.scheduleRefresh(0)
	}
}
