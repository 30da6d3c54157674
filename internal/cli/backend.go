package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"course-exam-service/internal/app"
	"course-exam-service/internal/config"
	"course-exam-service/internal/infra/memory"
	"course-exam-service/internal/infra/postgres"
	infraredis "course-exam-service/internal/infra/redis"
	"course-exam-service/internal/infra/telegram"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backend is the wired application: store, caches, notifier and services.
type backend struct {
	store    app.Store
	services *app.Services
	closers  []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the configured infrastructure, creates the schema and
// seeds first-run accounts. Failure to open the store is fatal for the caller.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg.Postgres.URL); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.store = postgres.NewStore(pool)
	} else {
		log.Printf("postgres url not configured, using in-memory store")
		b.store = memory.NewStore()
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}

	poolTTL := config.TTLDuration(cfg.Pool.TTL, 10*time.Minute)
	var pool app.QuestionPool
	var sessions app.SessionRepository
	if redisClient != nil {
		pool = infraredis.NewPoolCache(redisClient, b.store, poolTTL)
		sessions = infraredis.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 8*time.Hour))
	} else {
		pool = memory.NewPoolCache(b.store, poolTTL)
		sessions = memory.NewSessionStore()
	}

	var notifier app.ResultNotifier
	if cfg.Telegram.Token != "" {
		n, err := telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		notifier = n
	}

	b.services = app.NewServices(b.store, pool, sessions, notifier, app.Options{
		BcryptCost:       cfg.Auth.BcryptCost,
		MaxLoginAttempts: cfg.Auth.MaxAttempts,
		Exam: app.ExamOptions{
			AutosaveEvery: cfg.Exam.AutosaveEvery,
			TickInterval:  config.TTLDuration(cfg.Exam.Tick, time.Second),
		},
	})

	seeded, err := app.Bootstrap(ctx, b.store, b.services.Auth, app.SeedAccounts{
		AdminUsername:     cfg.Auth.Seed.AdminUsername,
		AdminPassword:     cfg.Auth.Seed.AdminPassword,
		CandidateUsername: cfg.Auth.Seed.CandidateUsername,
		CandidatePassword: cfg.Auth.Seed.CandidatePassword,
	})
	if err != nil {
		b.Close()
		return nil, err
	}
	if seeded {
		log.Printf("seeded default accounts %q and %q", cfg.Auth.Seed.AdminUsername, cfg.Auth.Seed.CandidateUsername)
	}
	return b, nil
}

// openDurableBackend is openBackend for one-shot admin commands, which are
// pointless against the in-memory store.
func openDurableBackend(ctx context.Context, configPath string) (*backend, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("postgres url not configured")
	}
	return openBackend(ctx, cfg)
}
