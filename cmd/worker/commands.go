package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cutroom/cutroom-backend/config"
	"github.com/cutroom/cutroom-backend/internal/bootstrap"
	"github.com/cutroom/cutroom-backend/internal/db"
	"github.com/cutroom/cutroom-backend/internal/logging"
	"github.com/cutroom/cutroom-backend/internal/maintenance"
	"github.com/cutroom/cutroom-backend/internal/metrics"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.App.LogLevel, cfg.App.Environment)
	return cfg, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := db.Open(cmd.Context(), &cfg.Database)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := db.Migrate(cmd.Context(), d.Pool); err != nil {
				return err
			}
			log.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print how many projects sit in each status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			stores, err := bootstrap.OpenStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			svcs := bootstrap.BuildServices(stores, cfg, nil)
			counts, err := svcs.Projects.StatusCounts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), maintenance.Summary(counts))
			return nil
		},
	}
}

func scheduleCmd() *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run periodic status reports until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if spec == "" {
				spec = cfg.Worker.StatusReportSchedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stores, err := bootstrap.OpenStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			svcs := bootstrap.BuildServices(stores, cfg, metrics.New(prometheus.NewRegistry()))
			sched, err := maintenance.NewScheduler(svcs.Projects, spec)
			if err != nil {
				return err
			}
			sched.Start()
			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
			return nil
		},
	}
	cmd.Flags().StringVar(&spec, "schedule", "", "cron spec, defaults to STATUS_REPORT_SCHEDULE")
	return cmd
}
