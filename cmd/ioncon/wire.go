package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/config"
	"github.com/matthewbaird/ioncon/internal/database"
	"github.com/matthewbaird/ioncon/internal/extstore"
	"github.com/matthewbaird/ioncon/internal/logger"
	"github.com/matthewbaird/ioncon/internal/mi"
	"github.com/matthewbaird/ioncon/internal/prefs"
)

// env holds the collaborators shared by all commands.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	gateway mi.Gateway
	// local is set when the gateway is the SQLite stand-in.
	local   *extstore.Store
	prefs   prefs.Store
	closers []func() error
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)

	e := &env{cfg: cfg, log: log}
	if err := e.openGateway(ctx); err != nil {
		e.close()
		return nil, err
	}
	if err := e.openPrefs(ctx); err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func (e *env) openGateway(ctx context.Context) error {
	g := e.cfg.Gateway
	switch g.Mode {
	case config.GatewayHTTP:
		e.gateway = mi.NewHTTPGateway(mi.HTTPConfig{
			BaseURL:           g.BaseURL,
			Username:          g.Username,
			Password:          g.Password,
			Token:             g.Token,
			Timeout:           g.Timeout,
			DefaultMaxRecords: g.DefaultMaxRecords,
		}, e.log)
		return nil
	case config.GatewayLocal:
		db, err := e.openDB(ctx, g.DSN)
		if err != nil {
			return err
		}
		store, err := extstore.New(ctx, db, e.log)
		if err != nil {
			return fmt.Errorf("local gateway: %w", err)
		}
		e.gateway, e.local = store, store
		e.log.Info("using local extension-table gateway", zap.String("dsn", g.DSN))
		return nil
	}
	return fmt.Errorf("unknown gateway mode %q", g.Mode)
}

func (e *env) openPrefs(ctx context.Context) error {
	p := e.cfg.Prefs
	switch p.Backend {
	case config.PrefsMemory:
		e.prefs = prefs.NewMemoryStore()
	case config.PrefsSQLite:
		db, err := e.openDB(ctx, p.DSN)
		if err != nil {
			return err
		}
		store, err := prefs.NewSQLiteStore(ctx, db)
		if err != nil {
			return err
		}
		e.prefs = store
	case config.PrefsRedis:
		client, err := prefs.NewRedisClient(ctx, prefs.RedisConfig{
			Addr:     p.Redis.Addr,
			Password: p.Redis.Password,
			DB:       p.Redis.DB,
		})
		if err != nil {
			return err
		}
		e.closers = append(e.closers, client.Close)
		e.prefs = prefs.NewRedisStore(client, "ioncon")
	default:
		return fmt.Errorf("unknown prefs backend %q", p.Backend)
	}
	return nil
}

func (e *env) openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := database.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, db.Close)
	return db, nil
}

func (e *env) close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil
	if e.log != nil {
		_ = e.log.Sync()
	}
	return errors.Join(errs...)
}
