package store

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/YushiOMOTE/buddy/core/db"
)

// Backend constants for conversation store selection.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	Backend     string
	DB          db.Config
	RedisURL    string
	RedisTTL    time.Duration
	DynamoTable string
	AWSRegion   string

	// SkipMigrate opens postgres without applying the schema, for read-only callers.
	SkipMigrate bool
}

// Open connects the configured backend. The returned close function releases
// its connections and is never nil.
func Open(ctx context.Context, cfg Config) (ConversationStore, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), noop, nil

	case BackendPostgres:
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to database: %w", err)
		}
		if !cfg.SkipMigrate {
			if err := database.WithTx(ctx, func(tx pgx.Tx) error {
				return MigratePostgres(ctx, tx)
			}); err != nil {
				database.Close()
				return nil, noop, err
			}
		}
		return NewPostgresStore(database.Pool()), database.Close, nil

	case BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("connecting to redis: %w", err)
		}
		return NewRedisStore(client, cfg.RedisTTL), func() { _ = client.Close() }, nil

	case BackendDynamoDB:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, noop, fmt.Errorf("loading aws config: %w", err)
		}
		return NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable), noop, nil

	default:
		return nil, noop, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
