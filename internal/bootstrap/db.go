package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/cutroom/cutroom-backend/config"
	"github.com/cutroom/cutroom-backend/internal/db"
	"github.com/cutroom/cutroom-backend/internal/projects/repository"
	"github.com/cutroom/cutroom-backend/internal/storage/postgres"
)

// Stores holds every connection the process opens. Redis is nil when
// REDIS_URL is unset.
type Stores struct {
	DB    *db.DB
	Users *sql.DB
	Redis *redis.Client
}

// OpenStores connects Postgres (pgx for projects, database/sql for users)
// and, when configured, Redis. Schema migration runs when DB_AUTO_MIGRATE
// is set.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}
	var err error

	s.DB, err = db.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := db.Migrate(ctx, s.DB.Pool); err != nil {
			s.Close()
			return nil, err
		}
		log.Info().Msg("database schema applied")
	}

	s.Users, err = postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		s.Close()
		return nil, err
	}

	if cfg.Redis.URL != "" {
		s.Redis, err = OpenRedis(ctx, cfg.Redis.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// ProjectRepository picks the store named by PROJECT_STORE.
func (s *Stores) ProjectRepository(cfg *config.Config) repository.Repository {
	if cfg.Projects.Store == config.ProjectStoreRedis && s.Redis != nil {
		return repository.NewRedisRepository(s.Redis)
	}
	return repository.NewPostgresRepository(s.DB.Pool)
}

func (s *Stores) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Users != nil {
		_ = s.Users.Close()
	}
	s.DB.Close()
}
