package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/saldo-app/saldo/internal/auth"
	"github.com/saldo-app/saldo/internal/config"
	"github.com/saldo-app/saldo/internal/dataservice"
	"github.com/saldo-app/saldo/internal/remote"
	"github.com/saldo-app/saldo/internal/store"
)

// Backend is an opened data service plus the connections behind it.
type Backend struct {
	Client dataservice.Client
	DB     *pgxpool.Pool
	Cache  *redis.Client
}

// Close releases the connections opened by OpenBackend.
func (b *Backend) Close() {
	if b.Cache != nil {
		b.Cache.Close()
	}
	if b.DB != nil {
		b.DB.Close()
	}
}

// OpenBackend connects the data service selected by cfg.DataBackend. Redis
// is connected whenever REDIS_URL is set, whatever the backend. Interactive
// clients pass persistSession so the auth backend, hosted or self-hosted,
// keeps the signed-in user; the relay passes false and stays stateless.
func OpenBackend(ctx context.Context, cfg config.Config, persistSession bool, logger *slog.Logger) (*Backend, error) {
	b := &Backend{}
	if cfg.RedisURL != "" {
		cache, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		b.Cache = cache
	}

	switch cfg.DataBackend {
	case config.BackendRemote:
		client, err := remote.New(remote.Options{
			BaseURL:        cfg.DataServiceURL,
			APIKey:         cfg.DataServiceKey,
			ServiceKey:     cfg.DataServiceSecret,
			Timeout:        cfg.RequestTimeout,
			PersistSession: persistSession,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Client = client.DataService()

	case config.BackendPostgres:
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.DB = db
		var sessions auth.SessionStore = auth.NewMemorySessions()
		if b.Cache != nil {
			sessions = auth.NewRedisSessions(b.Cache)
		} else {
			logger.Warn("REDIS_URL not set, sessions are kept in memory")
		}
		authSvc := auth.NewService(auth.NewPostgresRepository(db), sessions, auth.Options{Secret: cfg.JWTSecret, SessionTTL: cfg.SessionTTL, PersistSession: persistSession})
		b.Client = dataservice.Client{Auth: authSvc, Store: store.NewPostgres(db)}

	case config.BackendMemory:
		secret := cfg.JWTSecret
		if secret == "" {
			secret = "development-only-secret"
		}
		authSvc := auth.NewService(auth.NewMemoryRepository(), auth.NewMemorySessions(), auth.Options{Secret: secret, SessionTTL: cfg.SessionTTL, PersistSession: persistSession})
		b.Client = dataservice.Client{Auth: authSvc, Store: store.NewMemory()}

	default:
		b.Close()
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}

	logger.Info("data backend ready", slog.String("backend", cfg.DataBackend))
	return b, nil
}

// Migrate creates the self-hosted schema.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if err := auth.NewPostgresRepository(db).Migrate(ctx); err != nil {
		return fmt.Errorf("migrate auth: %w", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}
