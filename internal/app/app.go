package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/resquick/portal/internal/assessment"
	"github.com/resquick/portal/internal/config"
	"github.com/resquick/portal/internal/db"
	"github.com/resquick/portal/internal/report"
	"github.com/resquick/portal/internal/repository"
	"github.com/resquick/portal/internal/service"
	"github.com/resquick/portal/internal/storage"
)

type App struct {
	Cfg                *config.Config
	DB                 *sqlx.DB
	AuthService        *service.AuthService
	EvidenceService    *service.EvidenceService
	ApplicationService *service.ApplicationService
	HelpService        *service.HelpService
	Reports            *report.Generator

	gemini *assessment.GeminiModel
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Open(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.Migrate(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Assessment model (optional outside production)
	var model assessment.Model
	var gemini *assessment.GeminiModel
	if cfg.GeminiAPIKey != "" {
		gemini, err = assessment.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to initialize assessment model: %w", err)
		}
		model = gemini
	} else {
		slog.Warn("GEMINI_API_KEY not set, AI assessment disabled")
	}

	a, err := Assemble(cfg, database, model)
	if err != nil {
		if gemini != nil {
			_ = gemini.Close()
		}
		_ = database.Close()
		return nil, err
	}
	a.gemini = gemini
	return a, nil
}

// Assemble wires repositories, storage and services on an open, migrated
// database. A nil model leaves AI assessment disabled.
func Assemble(cfg *config.Config, database *sqlx.DB, model assessment.Model) (*App, error) {
	// Repositories
	accountRepository := repository.NewAccountRepository(database)
	applicationRepository := repository.NewApplicationRepository(database)

	// Storage
	evidenceStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Official credentials
	officials, err := service.LoadOfficials(cfg.OfficialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load officials: %w", err)
	}

	// Services
	authService := service.NewAuthService(
		accountRepository,
		officials,
		cfg.SessionSecret,
		cfg.IsProduction(),
		cfg.SessionExpiry,
	)
	evidenceService := service.NewEvidenceService(evidenceStorage, cfg.UploadPrefix)
	applicationService := service.NewApplicationService(
		applicationRepository,
		evidenceService,
		assessment.NewAnalyzer(model, cfg.CompensationBase),
	)

	helpService := service.NewHelpService(cfg.ContentPath, cfg.IsDevelopment())
	err = helpService.LoadPages()
	if err != nil {
		return nil, fmt.Errorf("failed to load help pages: %w", err)
	}

	return &App{
		Cfg:                cfg,
		DB:                 database,
		AuthService:        authService,
		EvidenceService:    evidenceService,
		ApplicationService: applicationService,
		HelpService:        helpService,
		Reports:            report.NewGenerator(evidenceService),
	}, nil
}

func (a *App) Close() error {
	if a.gemini != nil {
		err := a.gemini.Close()
		if err != nil {
			slog.Warn("failed to close assessment client", "error", err)
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
