package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/YushiOMOTE/buddy/internal/model"
)

const conversationsSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	events     JSONB NOT NULL DEFAULT '[]'::jsonb,
	version    BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Querier is the subset of pgxpool.Pool and pgx.Tx used by the postgres store.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	q Querier
}

// NewPostgresStore returns a ConversationStore backed by the conversations table.
func NewPostgresStore(q Querier) ConversationStore {
	return &postgresStore{q: q}
}

// MigratePostgres creates the conversations table if it does not exist.
func MigratePostgres(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, conversationsSchema); err != nil {
		return fmt.Errorf("creating conversations table: %w", err)
	}
	return nil
}

func (s *postgresStore) Get(ctx context.Context, id string) (*model.ConversationLog, error) {
	var (
		events  []byte
		version int64
	)
	err := s.q.QueryRow(ctx,
		`SELECT events, version FROM conversations WHERE id = $1`,
		id,
	).Scan(&events, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("selecting conversation: %w", err)
	}

	log := model.NewConversationLog(id)
	if err := json.Unmarshal(events, &log.Turns); err != nil {
		return nil, fmt.Errorf("decoding conversation events: %w", err)
	}
	if log.Turns == nil {
		log.Turns = []model.Turn{}
	}
	log.Version = version
	return log, nil
}

func (s *postgresStore) Put(ctx context.Context, log *model.ConversationLog) error {
	events, err := json.Marshal(log.Turns)
	if err != nil {
		return fmt.Errorf("encoding conversation events: %w", err)
	}

	next := log.Version + 1

	var tag pgconn.CommandTag
	if log.Version == 0 {
		tag, err = s.q.Exec(ctx,
			`INSERT INTO conversations (id, events, version) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO NOTHING`,
			log.ID, events, next,
		)
	} else {
		tag, err = s.q.Exec(ctx,
			`UPDATE conversations SET events = $2, version = $3, updated_at = now()
			 WHERE id = $1 AND version = $4`,
			log.ID, events, next, log.Version,
		)
	}
	if err != nil {
		return fmt.Errorf("writing conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	log.Version = next
	return nil
}
