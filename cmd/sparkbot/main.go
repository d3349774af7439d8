package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/sparkbot/internal/agent"
	"github.com/nidhogg/sparkbot/internal/api"
	"github.com/nidhogg/sparkbot/internal/bus"
	"github.com/nidhogg/sparkbot/internal/command"
	"github.com/nidhogg/sparkbot/internal/config"
	"github.com/nidhogg/sparkbot/internal/gateway"
	"github.com/nidhogg/sparkbot/internal/idle"
	msgrouter "github.com/nidhogg/sparkbot/internal/router"
	pgstore "github.com/nidhogg/sparkbot/internal/store"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/sparkbot.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	defer logger.Sync()
	logger.Info("Starting sparkbot...", zap.String("config", cfgPath))

	// Content: intent catalog and phrasebook
	var content *config.ContentFile
	if cfg.Content != "" {
		content, err = config.LoadContent(cfg.Content)
		if err != nil {
			logger.Fatal("failed to load content", zap.String("path", cfg.Content), zap.Error(err))
		}
	}
	catalog, err := buildCatalog(content)
	if err != nil {
		logger.Fatal("invalid intent catalog", zap.Error(err))
	}
	phrases := buildPhrasebook(content)

	// Agent engine
	resolver := buildResolver(cfg.Lookup, logger)
	engine, err := agent.NewEngine(catalog, phrases, buildOptions(cfg.Responder, resolver), logger)
	if err != nil {
		logger.Fatal("invalid responder config", zap.Error(err))
	}
	for _, p := range cfg.Personas {
		if _, err := engine.Register(p.Name, p.Age, p.Gender); err != nil {
			logger.Fatal("invalid persona", zap.String("name", p.Name), zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL transcript archive
	var archive api.Archive
	var pgStore *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := pgstore.New(ctx, cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without archive", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(ctx, "migrations"); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			pgStore = ps
			archive = ps
			engine.AddSink(ps)
		}
	}

	// Redis turn events
	var eventBus *bus.EventBus
	if cfg.Database.Redis.URL != "" {
		eb, busErr := bus.New(ctx, cfg.Database.Redis.URL, logger)
		if busErr != nil {
			logger.Warn("Redis unavailable, running without turn events", zap.Error(busErr))
		} else {
			eventBus = eb
			engine.AddSink(eb)
		}
	}

	// Gateway
	gw := gateway.NewGateway(logger)
	commands := command.NewRegistry()
	command.RegisterBuiltins(commands, engine, gw)
	msgRouter := msgrouter.New(engine, gw, commands, cfg.Gateway.DefaultAgent, logger)
	gw.SetHandler(msgRouter.Handle)

	restAdapter := gateway.NewRESTAdapter(time.Duration(cfg.Gateway.RESTTimeoutSeconds)*time.Second, logger)
	gw.Register(restAdapter)

	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		slackAdapter := gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger)
		for name, av := range cfg.Gateway.Avatars {
			slackAdapter.SetPersona(name, &gateway.AgentPersona{Name: name, IconURL: av.IconURL, Emoji: av.Emoji})
		}
		gw.Register(slackAdapter)
	}

	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		discordAdapter := gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger)
		for name, av := range cfg.Gateway.Avatars {
			discordAdapter.SetPersona(name, &gateway.AgentPersona{Name: name, IconURL: av.IconURL, Emoji: av.Emoji})
		}
		for channel, hook := range cfg.Gateway.Discord.Webhooks {
			discordAdapter.SetWebhook(channel, hook)
		}
		gw.Register(discordAdapter)
	}

	broadcaster := gateway.NewBroadcaster(gw, logger)

	if err := gw.ConnectAll(ctx); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	// Idle watcher
	var watcher *idle.Watcher
	if cfg.Idle.Enabled {
		watcher = idle.NewWatcher(engine, time.Duration(cfg.Idle.IntervalSeconds)*time.Second, logger)
		watcher.OnNudge(broadcaster.Nudge)
		if eventBus != nil {
			watcher.OnNudge(eventBus.PublishNudge)
		}
		watcher.Start()
	}

	// HTTP API
	handler := api.NewHandler(engine, archive, broadcaster, restAdapter, gw, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("sparkbot listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down sparkbot...")
	if watcher != nil {
		watcher.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	if err := gw.Close(); err != nil {
		logger.Warn("gateway close", zap.Error(err))
	}
	if eventBus != nil {
		eventBus.Close()
	}
	if pgStore != nil {
		pgStore.Close()
	}
}

// newLogger builds a development logger at the configured level.
func newLogger(level string) *zap.Logger {
	zcfg := zap.NewDevelopmentConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
