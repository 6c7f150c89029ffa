// Package app composes the client's components with fx.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/bus"
	"github.com/pairchat/pairchat/internal/directory"
	"github.com/pairchat/pairchat/internal/lock"
	"github.com/pairchat/pairchat/internal/logging"
	"github.com/pairchat/pairchat/internal/profile"
	"github.com/pairchat/pairchat/internal/session"
	"github.com/pairchat/pairchat/internal/sessioncache"
	"github.com/pairchat/pairchat/internal/status"
	"github.com/pairchat/pairchat/internal/tui"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile   string
	StorePath string
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("client",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideSessionCache,
			provideSessionProvider,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	return logging.New(profile.LogPath(p.Profile), p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, b *bus.Bus, logger *zap.Logger) (*directory.DB, error) {
	db, err := directory.Open(p.StorePath, b)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("directory store opened", zap.String("path", p.StorePath))
	return db, nil
}

func provideSessionCache(p Params) (*sessioncache.Store, error) {
	return sessioncache.Open(profile.UserStorePath(p.Profile))
}

func provideSessionProvider(db *directory.DB, cache *sessioncache.Store, logger *zap.Logger) *session.Provider {
	return session.NewProvider(db, cache, logger)
}

func provideTUI(p Params, db *directory.DB, provider *session.Provider, machine *status.Machine, logger *zap.Logger) *tui.App {
	return tui.New(db, provider, machine, p.Profile, logger)
}

func registerLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, ui *tui.App, lk *lock.Lock, db *directory.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := ui.Run(); err != nil {
					logger.Error("interface exited with error", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			ui.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
