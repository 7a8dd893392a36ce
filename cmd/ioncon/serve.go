package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/app"
	"github.com/matthewbaird/ioncon/internal/clock"
	"github.com/matthewbaird/ioncon/internal/config"
	"github.com/matthewbaird/ioncon/internal/eventbus"
	"github.com/matthewbaird/ioncon/internal/language"
	"github.com/matthewbaird/ioncon/internal/server"
	"github.com/matthewbaird/ioncon/internal/service"
	"github.com/matthewbaird/ioncon/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the screen API",
	Long: `Serve the IONCON screen over HTTP. Every browser session gets its own
controller; state changes are pushed on /v1/stream.`,
	Example: `  ioncon serve --config config.yaml
  IONCON_GATEWAY_MODE=http IONCON_GATEWAY_URL=https://m3.example.com:21108 ioncon serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	lang, err := language.New()
	if err != nil {
		return fmt.Errorf("loading language bundles: %w", err)
	}

	bus := eventbus.New(1024, e.log)
	bus.Subscribe("log", eventbus.NewLogConsumer(e.log))
	bus.Start(ctx)
	defer bus.Stop()

	records := service.NewRecordService(e.gateway, e.log)
	global := config.FileGlobalSource{Path: e.cfg.GlobalConfigPath}
	users := app.StaticUser(e.cfg.User)
	sessions := session.NewManager(e.cfg.Server.SessionMax, e.cfg.Server.SessionIdle, clock.Real{},
		func(id string) *app.Controller {
			e.log.Debug("session created", zap.String("session", id))
			return app.New(id, app.Deps{
				Records:  records,
				Language: lang,
				Global:   global,
				Prefs:    e.prefs,
				Users:    users,
				Bus:      bus,
				Logger:   e.log,
			})
		},
		(*app.Controller).Close)

	return server.Run(ctx, server.Config{
		Addr:         e.cfg.Server.Addr(),
		ReadTimeout:  e.cfg.Server.ReadTimeout,
		WriteTimeout: e.cfg.Server.WriteTimeout,
		Sessions:     sessions,
		Events:       bus,
		Logger:       e.log,
	})
}
