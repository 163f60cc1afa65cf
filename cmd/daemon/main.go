package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/genricoloni/volt/internal/catalog"
	"github.com/genricoloni/volt/internal/config"
	"github.com/genricoloni/volt/internal/domain"
	"github.com/genricoloni/volt/internal/engine"
	"github.com/genricoloni/volt/internal/fetcher"
	"github.com/genricoloni/volt/internal/health"
	"github.com/genricoloni/volt/internal/history"
	"github.com/genricoloni/volt/internal/media"
	"github.com/genricoloni/volt/internal/mpris"
	"github.com/genricoloni/volt/internal/playlist"
	"github.com/genricoloni/volt/internal/processor"
	"github.com/genricoloni/volt/internal/session"
	"github.com/genricoloni/volt/internal/storage"
	"github.com/genricoloni/volt/internal/visualizer"
	"github.com/genricoloni/volt/internal/web"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AppOptions is the daemon's dependency graph
var AppOptions = fx.Options(
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Provide dependencies
	fx.Provide(
		newLogger,
		fx.Annotate(config.NewAppConfig, fx.As(new(domain.Config))),
		newStorage,
		asKVStore,
		asChangeNotifier,
		session.NewStore,
		asSessionSource,
		fx.Annotate(catalog.NewClient, fx.As(new(domain.Resolver), new(domain.Catalog))),
		media.NewBackend,
		asMediaBackend,
		session.NewController,
		asPlayer,
		health.NewMonitor,
		playlist.NewService,
		history.New,
		visualizer.NewScreenResolution,
		newAnimator,
		fx.Annotate(fetcher.NewHTTPFetcher, fx.As(new(domain.Fetcher))),
		fx.Annotate(processor.NewArtworkProcessor, fx.As(new(domain.ArtworkProcessor))),
		engine.NewEngine,
		newMPRIS,
		newWebServer,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed loading .env file: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(AppOptions)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "volt: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "volt: %v\n", err)
		os.Exit(1)
	}
}

// newLogger creates a production zap logger; VOLT_LOG_LEVEL overrides the info level
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if raw := os.Getenv("VOLT_LOG_LEVEL"); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid VOLT_LOG_LEVEL: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	return cfg.Build()
}

func newStorage(logger *zap.Logger, cfg domain.Config) (*storage.SQLiteStore, error) {
	return storage.NewSQLiteStore(filepath.Join(cfg.GetDataDir(), storage.DefaultFileName), logger)
}

func asKVStore(s *storage.SQLiteStore) domain.KVStore { return s }

func asChangeNotifier(s *storage.SQLiteStore) domain.ChangeNotifier { return s }

func asSessionSource(s *session.Store) domain.SessionSource { return s }

func asMediaBackend(b *media.Backend) domain.MediaBackend { return b }

func asPlayer(c *session.Controller) domain.Player { return c }

func newAnimator(
	logger *zap.Logger,
	cfg domain.Config,
	src domain.SessionSource,
	backend *media.Backend,
	screen *domain.ScreenResolution,
) *visualizer.Animator {
	return visualizer.NewAnimator(logger, cfg, src, backend.Analyser(), visualizer.ViewportFor(screen, cfg))
}

func newMPRIS(
	logger *zap.Logger,
	cfg domain.Config,
	player domain.Player,
	src domain.SessionSource,
	artwork *engine.Engine,
) *mpris.Server {
	return mpris.NewServer(logger, cfg, player, src, artwork)
}

type webParams struct {
	fx.In

	Logger    *zap.Logger
	Config    domain.Config
	Player    domain.Player
	Session   domain.SessionSource
	Catalog   domain.Catalog
	Playlists *playlist.Service
	History   *history.History
	Health    *health.Monitor
	Animator  *visualizer.Animator
	Artwork   *engine.Engine
}

func newWebServer(p webParams) *web.Server {
	return web.NewServer(p.Logger, p.Config, web.Deps{
		Player:     p.Player,
		Session:    p.Session,
		Catalog:    p.Catalog,
		Playlists:  p.Playlists,
		History:    p.History,
		Health:     p.Health,
		Visualizer: p.Animator,
		Artwork:    p.Artwork,
	})
}

type hookParams struct {
	fx.In

	Logger     *zap.Logger
	Storage    *storage.SQLiteStore
	Backend    *media.Backend
	Controller *session.Controller
	Playlists  *playlist.Service
	Health     *health.Monitor
	Animator   *visualizer.Animator
	Engine     *engine.Engine
	MPRIS      *mpris.Server
	Web        *web.Server
}

// registerHooks sets up application lifecycle hooks
func registerHooks(lc fx.Lifecycle, p hookParams) {
	// background work outlives the start deadline, so it gets its own context
	runCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Storage.Start(); err != nil {
				p.Logger.Warn("External storage changes will not be detected", zap.Error(err))
			}
			if err := p.Backend.Start(runCtx); err != nil {
				return err
			}

			p.Controller.Restore(ctx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Controller.Run(runCtx)
			}()

			starters := []func(context.Context) error{
				p.Playlists.Start,
				p.Health.Start,
				p.Animator.Start,
				p.Engine.Start,
				p.MPRIS.Start,
				p.Web.Start,
			}
			for _, start := range starters {
				if err := start(runCtx); err != nil {
					return err
				}
			}
			p.Logger.Info("Volt daemon started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("Shutting down")
			err := multierr.Combine(
				p.Web.Stop(ctx),
				p.MPRIS.Stop(ctx),
				p.Engine.Stop(ctx),
				p.Animator.Stop(ctx),
				p.Health.Stop(ctx),
			)
			cancel()
			wg.Wait()
			return multierr.Combine(err,
				p.Backend.Shutdown(ctx),
				p.Storage.Close(),
			)
		},
	})
}
