package changelog

import (
	"context"

	"github.com/eventboard/project/internal/contracts"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createChangesTableSQL = `
CREATE TABLE IF NOT EXISTS event_changes (
  change_id text PRIMARY KEY,
  action text NOT NULL,
  collection text NOT NULL,
  store_key text NOT NULL,
  event_ids text[] NOT NULL DEFAULT '{}',
  title text NOT NULL DEFAULT '',
  shard_id integer NOT NULL,
  stream_seq bigint NOT NULL DEFAULT 0,
  occurred_at timestamptz NOT NULL,
  inserted_at timestamptz NOT NULL DEFAULT now()
)`

const createChangesStoreKeyIndexSQL = `
CREATE INDEX IF NOT EXISTS event_changes_store_key_idx ON event_changes (store_key, occurred_at)`

const createChangeOffsetsSQL = `
CREATE TABLE IF NOT EXISTS change_log_offsets (
  collection text PRIMARY KEY,
  last_stream_seq bigint NOT NULL DEFAULT 0,
  updated_at timestamptz NOT NULL DEFAULT now()
)`

const insertChangeSQL = `
INSERT INTO event_changes (
  change_id, action, collection, store_key, event_ids,
  title, shard_id, stream_seq, occurred_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (change_id) DO NOTHING
`

const upsertChangeOffsetSQL = `
INSERT INTO change_log_offsets (collection, last_stream_seq, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (collection) DO UPDATE
SET last_stream_seq = GREATEST(change_log_offsets.last_stream_seq, EXCLUDED.last_stream_seq),
    updated_at = now()
`

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createChangesTableSQL, createChangesStoreKeyIndexSQL, createChangeOffsetsSQL} {
		if _, err := r.Pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record stores the change and advances the collection offset in one
// transaction. Replayed changes are ignored.
func (r *PostgresRepository) Record(ctx context.Context, change contracts.EventChange, streamSeq uint64) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	eventIDs := change.EventIDs
	if eventIDs == nil {
		eventIDs = []string{}
	}
	if _, err := tx.Exec(ctx, insertChangeSQL,
		change.ChangeID,
		change.Action,
		change.Collection,
		change.StoreKey,
		eventIDs,
		change.Title,
		change.ShardID,
		int64(streamSeq),
		change.OccurredAt,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, upsertChangeOffsetSQL, change.Collection, int64(streamSeq)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
