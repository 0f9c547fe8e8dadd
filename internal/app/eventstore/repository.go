package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/eventboard/project/internal/board"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound    = errors.New("event not found")
	ErrDuplicateID = errors.New("event id already exists")
)

const uniqueViolation = "23505"

const createEventsTableSQL = `
CREATE TABLE IF NOT EXISTS events (
  store_key text PRIMARY KEY,
  event_id text NOT NULL UNIQUE,
  title text NOT NULL,
  event_date text NOT NULL,
  event_time text NOT NULL,
  location text NOT NULL DEFAULT '',
  description text NOT NULL DEFAULT '',
  category text NOT NULL,
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
)`

const createEventsCreatedIndexSQL = `
CREATE INDEX IF NOT EXISTS events_created_at_idx ON events (created_at)`

const listEventsSQL = `
SELECT store_key, event_id, title, event_date, event_time,
       location, description, category, created_at, updated_at
FROM events
ORDER BY created_at, store_key`

const insertEventSQL = `
INSERT INTO events (
  store_key, event_id, title, event_date, event_time,
  location, description, category
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const updateEventSQL = `
UPDATE events
SET title = $2,
    event_date = $3,
    event_time = $4,
    location = $5,
    description = $6,
    category = $7,
    updated_at = now()
WHERE store_key = $1`

const deleteEventSQL = `
DELETE FROM events WHERE store_key = $1`

// Repository is the persistent side of the collection.
type Repository interface {
	List(ctx context.Context) ([]board.Event, error)
	Insert(ctx context.Context, event board.Event) error
	InsertBatch(ctx context.Context, events []board.Event) error
	Update(ctx context.Context, event board.Event) error
	Delete(ctx context.Context, storeKey string) error
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, createEventsTableSQL); err != nil {
		return err
	}
	if _, err := r.Pool.Exec(ctx, createEventsCreatedIndexSQL); err != nil {
		return err
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]board.Event, error) {
	rows, err := r.Pool.Query(ctx, listEventsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]board.Event, 0)
	for rows.Next() {
		var (
			e         board.Event
			category  string
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(
			&e.StoreKey,
			&e.ID,
			&e.Title,
			&e.Date,
			&e.Time,
			&e.Location,
			&e.Description,
			&category,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, err
		}
		e.Category = board.Category(category)
		e.CreatedAt = &createdAt
		e.UpdatedAt = &updatedAt
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, event board.Event) error {
	_, err := r.Pool.Exec(ctx, insertEventSQL, insertArgs(event)...)
	return mapWriteError(err)
}

// InsertBatch writes every event in one transaction.
func (r *PostgresRepository) InsertBatch(ctx context.Context, events []board.Event) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, event := range events {
		if _, err := tx.Exec(ctx, insertEventSQL, insertArgs(event)...); err != nil {
			return mapWriteError(err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) Update(ctx context.Context, event board.Event) error {
	tag, err := r.Pool.Exec(ctx, updateEventSQL,
		event.StoreKey,
		event.Title,
		event.Date,
		event.Time,
		event.Location,
		event.Description,
		string(event.Category),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the row; deleting an absent row is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, storeKey string) error {
	_, err := r.Pool.Exec(ctx, deleteEventSQL, storeKey)
	return err
}

func insertArgs(event board.Event) []any {
	return []any{
		event.StoreKey,
		event.ID,
		event.Title,
		event.Date,
		event.Time,
		event.Location,
		event.Description,
		string(event.Category),
	}
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateID
	}
	return err
}
