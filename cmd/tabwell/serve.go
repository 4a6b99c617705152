package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabwell"
	"pkt.systems/tabwell/core"
	"pkt.systems/tabwell/httpapi"
	"pkt.systems/tabwell/internal/appconfig"
	"pkt.systems/tabwell/schema"
	"pkt.systems/tabwell/surfacecdp"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var headless bool
	var noSweeper bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tab lifecycle service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			serviceCfg, err := schema.NormalizeServiceConfig(cfg.ServiceConfig())
			if err != nil {
				return err
			}
			settings, err := schema.NormalizeSettings(cfg.Settings())
			if err != nil {
				return err
			}
			logger.Info("profiles configured", "count", len(serviceCfg.Profiles), "default", serviceCfg.DefaultProfile)

			factory := surfacecdp.NewFactory(surfacecdp.Options{
				StateDir: serviceCfg.StateDir,
				Headless: headless,
				Logger:   logger,
			})
			defer factory.Shutdown()

			serverCfg := tabwell.ServerConfig{
				Service:    serviceCfg,
				Settings:   settings,
				HTTP:       httpapi.Config{Addr: cfg.HTTP.Addr},
				HubHistory: 1000,
			}
			serverDeps := tabwell.ServerDeps{
				ServiceDeps: core.ServiceDeps{
					Surfaces: factory,
					Logger:   logger,
				},
			}
			opts := []tabwell.ServerOption{tabwell.WithHTTP()}
			if !noSweeper {
				opts = append(opts, tabwell.WithSweeper())
			}
			server, err := tabwell.New(serverCfg, serverDeps, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			go watchSettings(ctx, cfgPath, logger, server)
			logger.Info("http server listening", "addr", serverCfg.HTTP.Addr)
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the render engine headless")
	cmd.Flags().BoolVar(&noSweeper, "no-sweeper", false, "disable the inactivity sweeper")
	return cmd
}

// watchSettings pushes edited settings into the running service.
func watchSettings(ctx context.Context, cfgPath string, logger pslog.Logger, server tabwell.Server) {
	service := tabwell.Service(server)
	if service == nil {
		return
	}
	err := appconfig.Watch(ctx, cfgPath, logger, func(cfg appconfig.Config) {
		if _, err := service.ApplySettings(ctx, schema.ApplySettingsRequest{Settings: cfg.Settings()}); err != nil {
			logger.Warn("settings apply failed", "err", err)
		}
	})
	if err != nil && ctx.Err() == nil {
		logger.Warn("settings watch stopped", "err", err)
	}
}
