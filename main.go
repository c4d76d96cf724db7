package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
	"github.com/Jamesonkanakulya/appointment-agent/agent/guest"
	"github.com/Jamesonkanakulya/appointment-agent/agent/llm"
	"github.com/Jamesonkanakulya/appointment-agent/agent/pin"
	runnerx "github.com/Jamesonkanakulya/appointment-agent/agent/runner"
	"github.com/Jamesonkanakulya/appointment-agent/agent/state"
	"github.com/Jamesonkanakulya/appointment-agent/agent/tool"
	"github.com/Jamesonkanakulya/appointment-agent/calendar"
	"github.com/Jamesonkanakulya/appointment-agent/notify"
	configx "github.com/Jamesonkanakulya/appointment-agent/pkg/config"
	_ "github.com/Jamesonkanakulya/appointment-agent/pkg/logger/autoload"
	"github.com/Jamesonkanakulya/appointment-agent/pkg/secrets"
	"github.com/Jamesonkanakulya/appointment-agent/server"
	tenantx "github.com/Jamesonkanakulya/appointment-agent/tenant"
)

type AppConfig struct {
	// SessionStore selects where conversation history lives:
	// memory, redis, or postgres.
	SessionStore string `envconfig:"SESSION_STORE" split_words:"true" default:"memory"`
	DatabaseURL  string `envconfig:"DATABASE_URL" split_words:"true"`
	RedisURL     string `envconfig:"REDIS_URL" split_words:"true"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	secretsCfg := configx.MustNew[secrets.Config]("SECRETS")
	box := must(secrets.NewBox(*secretsCfg))

	llmCfg := configx.MustNew[llm.Config]("LLM")
	model := must(llm.NewClient(*llmCfg))

	var db *bun.DB
	if appCfg.DatabaseURL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(appCfg.DatabaseURL)))
		db = bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
	}

	tenants, guests := buildStores(db)
	sessions := buildSessionStore(appCfg, db)

	pins := must(pin.NewPolicy(guests))
	providers := calendar.NewFactory(box)
	notifiers := func(t tenantx.Tenant) contractx.Notifier {
		return notify.NewSMTPNotifier(t, box)
	}

	dispatcher := tool.NewDispatcher(guests, pins, providers, notifiers)
	runner := runnerx.NewRunner(model, sessions, runnerx.Dispatch(dispatcher))

	serverCfg := configx.MustNew[server.Config]("SERVER")
	srv := server.New(*serverCfg, tenants, runner)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shutdown complete")
}

func buildStores(db *bun.DB) (tenantx.Store, guest.Store) {
	if db == nil {
		log.Warn().Msg("no DATABASE_URL set, using in-memory tenant and guest stores")
		return tenantx.NewMemoryStore(), guest.NewMemoryStore()
	}
	return must(tenantx.NewPostgresStore(db)), must(guest.NewPostgresStore(db))
}

func buildSessionStore(cfg *AppConfig, db *bun.DB) state.Store {
	switch strings.ToLower(cfg.SessionStore) {
	case "redis":
		opts := must(redis.ParseURL(cfg.RedisURL))
		return must(state.NewRedisStore(redis.NewClient(opts)))
	case "postgres":
		if db == nil {
			log.Fatal().Msg("SESSION_STORE=postgres requires DATABASE_URL")
		}
		return must(state.NewPostgresStore(db))
	default:
		return state.NewMemoryStore()
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	return v
}
