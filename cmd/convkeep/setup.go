package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/convkeep/internal/adapter"
	"github.com/sandevgo/convkeep/internal/capture"
	"github.com/sandevgo/convkeep/internal/config"
	"github.com/sandevgo/convkeep/internal/domains"
	"github.com/sandevgo/convkeep/internal/export"
	"github.com/sandevgo/convkeep/internal/search"
	"github.com/sandevgo/convkeep/internal/service/records"
	"github.com/sandevgo/convkeep/internal/storage/sqlite"
	"github.com/sandevgo/convkeep/internal/transport/bridge"
	"github.com/sandevgo/convkeep/pkg/log"
	"github.com/sandevgo/convkeep/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	err := initEnv(ctx, config.GetRuntimePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	captureCfg := config.NewCaptureConfig(ctx)
	bridgeCfg := config.NewBridgeConfig(ctx)

	// 2. Storage + search index
	db, recordsSvc, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	// 3. Domain allowlist, followed for external edits
	allowlist, err := initDomains(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize domain allowlist")
	}
	services = append(services, &domainWatcher{registry: allowlist})

	// 4. Capture bridge
	server := bridge.NewServer(
		bridgeCfg.ListenAddr,
		capture.Config{
			SettleDelay:      captureCfg.SettleDelay,
			DebounceInterval: captureCfg.DebounceInterval,
			ScanThrottle:     captureCfg.ScanThrottle,
			InterRecordDelay: captureCfg.InterRecordDelay,
		},
		recordsSvc,
		allowlist,
		adapter.NewRegistry(),
	)
	services = append(services, server)

	return services
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, *records.Service, error) {
	if err := os.MkdirAll(cfg.GetRuntimePath(), 0o755); err != nil {
		return nil, nil, err
	}

	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, err
	}

	repo := sqlite.NewConversationRepo(db, cfg.MaxStorageBytes)
	svc := records.NewService(repo, search.NewIndexer(repo))
	if err := svc.Init(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, svc, nil
}

func initDomains(ctx context.Context, cfg *config.AppConfig) (*domains.Registry, error) {
	registry := domains.NewRegistry(domains.NewFileStorage(cfg.GetDomainsPath()))
	if err := registry.Load(ctx); err != nil {
		return nil, err
	}
	return registry, nil
}

// domainWatcher follows edits to domains.json so allowlist changes take
// effect without restarting the bridge.
type domainWatcher struct {
	registry *domains.Registry
}

func (w *domainWatcher) Start(ctx context.Context) error {
	ch, err := w.registry.Watch(ctx)
	if err != nil {
		return err
	}
	for cfg := range ch {
		log.FromCtx(ctx).Info().Int("domains", len(cfg.Domains)).Msg("domain allowlist reloaded")
	}
	return nil
}

func (w *domainWatcher) Shutdown(ctx context.Context) error {
	return nil
}

// runtime bundles the collaborators the one-shot commands need. Unlike
// NewServices it starts nothing; callers Close it when done.
type runtime struct {
	db       *sql.DB
	records  *records.Service
	exporter *export.Manager
	domains  *domains.Registry
}

func openRuntime(ctx context.Context) (*runtime, error) {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, err
	}

	appCfg := config.NewAppConfig(ctx)
	db, recordsSvc, err := initStorage(ctx, appCfg)
	if err != nil {
		return nil, err
	}

	registry, err := initDomains(ctx, appCfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &runtime{
		db:       db,
		records:  recordsSvc,
		exporter: export.NewManager(recordsSvc),
		domains:  registry,
	}, nil
}

func (r *runtime) Close() error {
	return r.db.Close()
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
