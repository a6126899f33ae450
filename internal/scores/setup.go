package scores

import (
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/dropzone/internal/config"
)

// NewServiceFromConfig wires a Service from configuration. A nil db selects
// the in-memory backend; a nil rdb keeps caching and locking in-process.
// extra options are applied last.
func NewServiceFromConfig(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, extra ...Option) *Service {
	var backend Backend
	if db != nil {
		backend = NewSQLBackend(db)
	} else {
		backend = NewMemoryBackend()
	}

	opts := []Option{
		WithTimeout(time.Duration(cfg.StoreTimeoutSeconds) * time.Second),
		WithLocker(lockerFor(cfg.ProfileLocking, rdb)),
	}
	if rdb != nil {
		opts = append(opts,
			WithCache(NewRedisCache(rdb, time.Duration(cfg.StatsCacheTTLSeconds)*time.Second)),
			WithPublisher(NewRedisPublisher(rdb)),
		)
	}
	return NewService(backend, append(opts, extra...)...)
}

func lockerFor(mode string, rdb *redis.Client) ProfileLocker {
	switch mode {
	case "none":
		log.Println("[SCORES] Profile locking disabled; concurrent attempts may lose profile updates")
		return NoopLocker{}
	case "redis":
		if rdb != nil {
			return NewRedisLocker(rdb)
		}
		log.Println("[SCORES] PROFILE_LOCKING=redis but Redis is not configured, using local locking")
	case "local", "":
	default:
		log.Printf("[SCORES] Unknown PROFILE_LOCKING %q, using local locking", mode)
	}
	return NewLocalLocker()
}
