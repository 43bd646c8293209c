package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/pokerdex/internal/config"
	"github.com/riskibarqy/pokerdex/internal/domain/group"
	"github.com/riskibarqy/pokerdex/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/pokerdex/internal/infrastructure/notify"
	cacherepo "github.com/riskibarqy/pokerdex/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/pokerdex/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/pokerdex/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/pokerdex/internal/platform/cache"
	idgen "github.com/riskibarqy/pokerdex/internal/platform/id"
	"github.com/riskibarqy/pokerdex/internal/platform/logging"
	"github.com/riskibarqy/pokerdex/internal/platform/resilience"
	"github.com/riskibarqy/pokerdex/internal/usecase"
)

func NewHTTPServer(cfg config.Config, logger *slog.Logger) (*http.Server, func() error, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	var groupRepo group.Repository = postgres.NewGroupRepository(db)
	gameRepo := postgres.NewGameRepository(db)
	if cfg.CacheEnabled {
		groupRepo = cacherepo.NewGroupRepository(groupRepo, basecache.NewStore(cfg.CacheTTL))
	}

	authz := usecase.NewAuthorizer(groupRepo, gameRepo)

	var events usecase.EventPublisher
	if cfg.WebhookEnabled {
		events = notify.NewWebhookPublisher(notify.WebhookPublisherConfig{
			URL:     cfg.WebhookURL,
			Secret:  cfg.WebhookSecret,
			Timeout: cfg.WebhookTimeout,
			Logger:  logging.Default(),
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.WebhookCircuitEnabled,
				FailureThreshold: cfg.WebhookCircuitFailureCount,
				OpenTimeout:      cfg.WebhookCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.WebhookCircuitHalfOpenMaxReq,
			},
		})
	}

	generator := idgen.NewRandomGenerator()
	membershipSvc := usecase.NewMembershipService(groupRepo, gameRepo, authz, events, generator)
	gameSvc := usecase.NewGameService(gameRepo, groupRepo, authz, events, generator)
	statsSvc := usecase.NewStatsService(groupRepo, gameRepo)

	anubisClient := anubis.NewClient(
		&http.Client{Timeout: cfg.AnubisTimeout},
		cfg.AnubisBaseURL,
		cfg.AnubisIntrospectURL,
		cfg.AnubisAdminKey,
		anubis.CircuitBreakerConfig{
			Enabled:          cfg.AnubisCircuitEnabled,
			FailureThreshold: cfg.AnubisCircuitFailureCount,
			OpenTimeout:      cfg.AnubisCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.AnubisCircuitHalfOpenMaxReq,
		},
		logger,
	)

	handler := httpapi.NewHandler(membershipSvc, gameSvc, statsSvc, logger)
	router := httpapi.NewRouter(handler, anubisClient, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		db.Close()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, db.Close, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Connect("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return db, nil
}
