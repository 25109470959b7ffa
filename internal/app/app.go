package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/NeseemGit/sb-squares/internal/config"
	"github.com/NeseemGit/sb-squares/internal/domain/pool"
	"github.com/NeseemGit/sb-squares/internal/domain/square"
	"github.com/NeseemGit/sb-squares/internal/domain/userprofile"
	"github.com/NeseemGit/sb-squares/internal/infrastructure/identity"
	"github.com/NeseemGit/sb-squares/internal/infrastructure/repository/memory"
	"github.com/NeseemGit/sb-squares/internal/infrastructure/repository/postgres"
	"github.com/NeseemGit/sb-squares/internal/interfaces/httpapi"
	idgen "github.com/NeseemGit/sb-squares/internal/platform/id"
	"github.com/NeseemGit/sb-squares/internal/platform/logging"
	"github.com/NeseemGit/sb-squares/internal/platform/resilience"
	"github.com/NeseemGit/sb-squares/internal/usecase"
)

type stores struct {
	pools    pool.Repository
	squares  square.Repository
	profiles userprofile.Repository
	feed     square.Feed
	close    func() error
}

// NewHTTPServer wires repositories, services, the identity client, and the
// router into a ready-to-run HTTP server. The returned cleanup releases the
// backing store and must be called after shutdown.
func NewHTTPServer(cfg config.Config, logger *slog.Logger, handlerLogger *logging.Logger) (*http.Server, func() error, error) {
	st, err := buildStores(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	ids := idgen.NewUUIDGenerator()

	gridSvc := usecase.NewGridService(st.pools, st.squares, ids, logger)
	poolSvc := usecase.NewPoolService(st.pools, st.squares, gridSvc, ids, logger)
	claimSvc := usecase.NewClaimService(st.pools, st.squares, logger)
	profileSvc := usecase.NewProfileService(st.profiles, ids, logger)

	identityClient := identity.NewClient(
		&http.Client{Timeout: cfg.IdentityTimeout},
		cfg.IdentityBaseURL,
		cfg.IdentityIntrospectPath,
		resilience.CircuitBreakerConfig{
			Enabled:          cfg.IdentityCircuitEnabled,
			FailureThreshold: cfg.IdentityCircuitFailureCount,
			OpenTimeout:      cfg.IdentityCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.IdentityCircuitHalfOpenMaxReq,
		},
		logger,
	)

	handler := httpapi.NewHandler(poolSvc, claimSvc, gridSvc, profileSvc, st.feed, identityClient, handlerLogger)
	router := httpapi.NewRouter(handler, identityClient, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		st.close()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, st.close, nil
}

func buildStores(cfg config.Config, logger *slog.Logger) (stores, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		squareRepo := memory.NewSquareRepository(nil)
		return stores{
			pools:    memory.NewPoolRepository(nil),
			squares:  squareRepo,
			profiles: memory.NewUserProfileRepository(nil),
			feed:     squareRepo,
			close:    func() error { return nil },
		}, nil
	case config.StoreBackendPostgres:
		db, err := openDB(cfg)
		if err != nil {
			return stores{}, fmt.Errorf("open database: %w", err)
		}
		squareRepo := postgres.NewSquareRepository(db)
		return stores{
			pools:    postgres.NewPoolRepository(db),
			squares:  squareRepo,
			profiles: postgres.NewUserProfileRepository(db),
			feed:     postgres.NewSquareFeed(squareRepo, cfg.FeedPollInterval, logger),
			close:    db.Close,
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
