package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/wagerlens/slipscan/external/factcheck"
	"github.com/wagerlens/slipscan/external/sofascore"
	"github.com/wagerlens/slipscan/internal/config"
	"github.com/wagerlens/slipscan/internal/domain/slip"
	"github.com/wagerlens/slipscan/internal/infrastructure/jobqueue"
	"github.com/wagerlens/slipscan/internal/infrastructure/repository/memory"
	"github.com/wagerlens/slipscan/internal/infrastructure/repository/postgres"
	"github.com/wagerlens/slipscan/internal/infrastructure/vision"
	"github.com/wagerlens/slipscan/internal/interfaces/httpapi"
	"github.com/wagerlens/slipscan/internal/platform/cache"
	idgen "github.com/wagerlens/slipscan/internal/platform/id"
	"github.com/wagerlens/slipscan/internal/platform/logging"
	"github.com/wagerlens/slipscan/internal/platform/resilience"
	"github.com/wagerlens/slipscan/internal/usecase"
)

// NewHTTPServer wires the full service graph and returns the HTTP server plus
// a cleanup func releasing held resources (currently the DB pool, if any).
func NewHTTPServer(cfg config.Config, logger *slog.Logger) (*http.Server, func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	platformLogger := logging.Default()

	repo, closeRepo, err := newSlipRepository(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	extractor, err := newVisionExtractor(cfg, platformLogger)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	verifier, err := newFixtureVerifier(cfg, platformLogger)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	sportsClient := sofascore.NewClient(sofascore.ClientConfig{
		BaseURL:    cfg.SofascoreBaseURL,
		Timeout:    cfg.SofascoreTimeout,
		MaxRetries: cfg.SofascoreMaxRetries,
		Logger:     platformLogger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SofascoreCircuitEnabled,
			FailureThreshold: cfg.SofascoreCircuitFailureCount,
			OpenTimeout:      cfg.SofascoreCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.SofascoreCircuitHalfOpenReq,
		},
	})

	var resolutionCache usecase.ResolutionCache
	if cfg.CacheEnabled {
		resolutionCache = cache.NewStore(cfg.CacheTTL)
	}

	resolutionSvc := usecase.NewResolutionService(
		sportsClient,
		verifier,
		resolutionCache,
		platformLogger,
		usecase.ResolutionConfig{
			PastGrace:      cfg.ResolutionPastGrace,
			AheadHorizon:   cfg.ResolutionAheadHorizon,
			AttemptTimeout: cfg.ResolutionAttemptTimeout,
		},
	)

	var scheduler usecase.ReresolveScheduler
	if cfg.QStashEnabled {
		scheduler = jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
		}, logger)
	}

	slipSvc := usecase.NewSlipService(
		repo,
		extractor,
		resolutionSvc,
		scheduler,
		idgen.NewRandomGenerator(),
		platformLogger,
		usecase.SlipServiceConfig{
			MaxWorkers:     cfg.SlipMaxWorkers,
			ReresolveDelay: cfg.SlipReresolveDelay,
		},
	)

	handler := httpapi.NewHandler(slipSvc, resolutionSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		closeRepo()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	cleanup := func(context.Context) error {
		closeRepo()
		return nil
	}

	return server, cleanup, nil
}

// newSlipRepository picks the storage backend: an empty DB_URL runs the
// service on in-memory storage, anything else connects to Postgres with
// traced queries.
func newSlipRepository(cfg config.Config, logger *slog.Logger) (slip.Repository, func(), error) {
	if cfg.DBURL == "" {
		logger.Info("slip storage backend", "backend", "memory")
		return memory.NewSlipRepository(), func() {}, nil
	}

	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Connect("postgres", dbURL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dbURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Info("slip storage backend", "backend", "postgres", "db_name", dbNameFromURL(dbURL))

	return postgres.NewSlipRepository(db), closeDB(db, logger), nil
}

func closeDB(db *sqlx.DB, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Error("close database", "error", err)
		}
	}
}

func newVisionExtractor(cfg config.Config, logger *logging.Logger) (*vision.Extractor, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for slip extraction")
	}

	return vision.NewExtractor(vision.ExtractorConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.VisionModel,
		Timeout: cfg.VisionTimeout,
		Logger:  logger,
	})
}

func newFixtureVerifier(cfg config.Config, logger *logging.Logger) (usecase.FixtureVerifier, error) {
	if !cfg.FactCheckEnabled {
		return nil, nil
	}

	client, err := factcheck.NewClient(factcheck.ClientConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.FactCheckModel,
		Timeout: cfg.FactCheckTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return client, nil
}
