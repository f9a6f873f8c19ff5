package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/YushiOMOTE/buddy/internal/model"
)

const redisKeyPrefix = "conversation:"

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a ConversationStore that keeps each log as one JSON
// value. A zero ttl keeps logs forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) ConversationStore {
	return &redisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *redisStore) Get(ctx context.Context, id string) (*model.ConversationLog, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading conversation: %w", err)
	}
	return model.DecodeConversationLog(data)
}

// Put uses WATCH/MULTI so a concurrent writer between the version check and
// the SET aborts the transaction.
func (s *redisStore) Put(ctx context.Context, log *model.ConversationLog) error {
	key := redisKey(log.ID)
	next := log.Version + 1

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != log.Version {
			return ErrConflict
		}

		data, err := model.EncodeConversationLog(&model.ConversationLog{
			ID:      log.ID,
			Turns:   log.Turns,
			Version: next,
		})
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return ErrConflict
		}
		if errors.Is(err, ErrConflict) {
			return err
		}
		return fmt.Errorf("writing conversation: %w", err)
	}

	log.Version = next
	return nil
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading conversation version: %w", err)
	}
	stored, err := model.DecodeConversationLog(data)
	if err != nil {
		return 0, err
	}
	return stored.Version, nil
}
