package store

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/storysync/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/storysync/internal/store/redis"
	"github.com/MrSnakeDoc/storysync/internal/store/sqlite"
)

const (
	EngineSQLite = "sqlite"
	EngineRedis  = "redis"
	EngineMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Engine      string
	SQLitePath  string
	RedisClient *goredis.Client // required for EngineRedis, closed by Store.Close
}

// NewByEngine opens the backend named by opts.Engine.
func NewByEngine(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Engine)) {
	case "", EngineSQLite:
		s, err := sqlite.Open(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case EngineRedis:
		if opts.RedisClient == nil {
			return nil, fmt.Errorf("redis store engine requires a redis client")
		}
		return redisstore.NewStore(opts.RedisClient), nil
	case EngineMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store engine: %s", opts.Engine)
	}
}
