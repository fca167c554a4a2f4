package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/database"
)

// Open builds the Store selected by cfg.StoreDriver. The returned close
// function releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		return NewRedis(rdb), rdb.Close, nil
	case config.StoreDriverSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLite(db), db.Close, nil
	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory store; progress will not survive restarts")
		return NewMemory(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
