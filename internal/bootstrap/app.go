package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"buildmycv-backend/internal/flows"
	"buildmycv-backend/internal/history"
	"buildmycv-backend/internal/llm"
	"buildmycv-backend/internal/llm/anthropic"
	"buildmycv-backend/internal/llm/gemini"
	"buildmycv-backend/internal/llm/openai"
	"buildmycv-backend/internal/shared/config"
	"buildmycv-backend/internal/shared/metrics"
	"buildmycv-backend/internal/shared/server"
	"buildmycv-backend/internal/shared/server/middleware"
	"buildmycv-backend/internal/shared/storage/db"
	"buildmycv-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sql.DB
	Model          llm.Model
	Metrics        *metrics.Registry
	HistoryRepo    history.Repo
	HistoryService *history.Service
	FlowService    *flows.Service
	FlowHandler    *flows.Handler
}

// connectDB is swapped in tests.
var connectDB = func(ctx context.Context, url string) (*sql.DB, error) {
	sqlDB, err := db.Connect(ctx, url, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return sqlDB, nil
}

// Build prepares dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	model, err := buildModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Model:   model,
		Metrics: metrics.NewRegistry(),
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      app.Config,
		FlowHandler: app.FlowHandler,
		Metrics:     app.Metrics,
		RateLimiter: middleware.NewRateLimiter(nil),
	})
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		telemetry.Info("bootstrap.history_memory", map[string]any{"reason": "DATABASE_URL empty"})
		return nil, nil
	}
	sqlDB, err := connectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.history_memory", map[string]any{
				"reason": "database unavailable",
				"error":  err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// buildModel picks the provider. A missing key degrades to the placeholder so
// the API still starts; every flow call then fails with llm_error.
func buildModel(ctx context.Context, cfg config.Config) (llm.Model, error) {
	var (
		model llm.Model
		key   string
		err   error
	)
	switch cfg.LLMProvider {
	case "gemini":
		key = cfg.GeminiAPIKey
		if key != "" {
			model, err = gemini.NewClient(ctx, gemini.Config{APIKey: key, Model: cfg.LLMModel, Timeout: cfg.LLMTimeout})
		}
	case "openai":
		key = cfg.OpenAIAPIKey
		if key != "" {
			model, err = openai.NewClient(openai.Config{APIKey: key, Model: cfg.LLMModel, Timeout: cfg.LLMTimeout})
		}
	case "anthropic":
		key = cfg.AnthropicAPIKey
		if key != "" {
			model, err = anthropic.NewClient(anthropic.Config{APIKey: key, Model: cfg.LLMModel, Timeout: cfg.LLMTimeout})
		}
	case "placeholder":
		return llm.PlaceholderModel{}, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, err
	}
	if key == "" {
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{
			"provider": cfg.LLMProvider,
			"reason":   "api key not set",
		})
		return llm.PlaceholderModel{}, nil
	}
	telemetry.Info("bootstrap.llm", map[string]any{"provider": cfg.LLMProvider, "model": cfg.LLMModel})
	return model, nil
}

func buildServices(app *App) {
	if app.DB != nil {
		app.HistoryRepo = &history.PGRepo{DB: app.DB}
	} else {
		app.HistoryRepo = history.NewMemoryRepo(0)
	}
	app.HistoryService = history.NewService(app.HistoryRepo)

	temperature := app.Config.LLMTemperature
	app.FlowService = flows.NewService(app.Model, &temperature, app.Metrics)
	app.FlowHandler = flows.NewHandler(app.FlowService, app.HistoryService, app.Config.MaxUploadBytes)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
