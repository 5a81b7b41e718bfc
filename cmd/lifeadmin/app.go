package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"lifeadmin-backend/internal/assistant"
	"lifeadmin-backend/internal/config"
	"lifeadmin-backend/internal/db"
	"lifeadmin-backend/internal/notify"
	"lifeadmin-backend/internal/store"
)

const snapshotInterval = 30 * time.Second

// app holds the long-lived components shared by the commands.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	backend store.Backend
	storage string

	database *db.DB
	memory   *store.MemoryStore
	snapshot *store.FileSnapshot

	publisher  notify.Publisher
	subscriber notify.Subscriber
	closeBus   func()
}

// openApp connects storage and the notification bus.
func openApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info("database connection established")
		if err := database.RunMigrations(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		a.database = database
		a.backend = store.NewDatabaseStore(database)
		a.storage = "postgres"
	} else {
		a.memory = store.NewMemoryStore()
		if cfg.DataFile != "" {
			a.snapshot = store.NewFileSnapshot(cfg.DataFile)
			if err := a.snapshot.Load(a.memory); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", cfg.DataFile, err)
			}
			log.Info("memory store restored", zap.String("file", cfg.DataFile))
		}
		a.backend = a.memory
		a.storage = "memory"
	}

	if cfg.NATSURL != "" {
		pub, err := notify.ConnectNATS(cfg.NATSURL, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		a.publisher, a.subscriber, a.closeBus = pub, pub, pub.Close
	} else {
		hub := notify.NewHub()
		a.publisher, a.subscriber, a.closeBus = hub, hub, hub.Close
	}
	return a, nil
}

func (a *app) health(ctx context.Context) error {
	if a.database == nil {
		return nil
	}
	return a.database.HealthCheck(ctx)
}

// saveSnapshot persists the memory store when it is file backed.
func (a *app) saveSnapshot() {
	if a.snapshot == nil {
		return
	}
	if err := a.snapshot.Save(a.memory); err != nil {
		a.log.Error("failed to save snapshot", zap.String("file", a.cfg.DataFile), zap.Error(err))
	}
}

func (a *app) runSnapshots(ctx context.Context, every time.Duration) {
	if a.snapshot == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.saveSnapshot()
		}
	}
}

func (a *app) Close() {
	if a.closeBus != nil {
		a.closeBus()
	}
	a.saveSnapshot()
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			a.log.Warn("failed to close database", zap.Error(err))
		}
	}
}

// newProvider picks the chat model adapter. A nil provider means template replies.
func newProvider(ctx context.Context, cfg config.Config, spec *assistant.PromptSpec) (assistant.Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		return assistant.NewOpenAIProvider(assistant.OpenAIConfig(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), cfg.OpenAIModel, spec), nil
	case "gemini":
		if cfg.GoogleAPIKey == "" {
			return nil, nil
		}
		p, err := assistant.NewGeminiProvider(ctx, &genai.ClientConfig{
			APIKey:  cfg.GoogleAPIKey,
			Backend: genai.BackendGeminiAPI,
		}, cfg.GeminiModel, spec)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "template", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
