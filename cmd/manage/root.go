package main

import (
	"encoding/json"
	"fmt"
	"io"

	"go-api/internal/config"
	"go-api/internal/database"
	"go-api/internal/logger"
	"go-api/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// app holds what the subcommands share. The database is opened on first use
// so that --help works without one.
type app struct {
	cfg     *config.Config
	logr    *logger.Logger
	db      *bun.DB
	reg     *prometheus.Registry
	metrics *metrics.Metrics

	metricsFile string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "manage",
		Short:         "Management commands for the GO API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.cfg = config.Load()
			a.logr = logger.New(a.cfg)
			a.logr.Logger = a.logr.With(
				zap.String("command", cmd.Name()),
				zap.String("run_id", ksuid.New().String()),
			)
			a.reg = prometheus.NewRegistry()
			a.metrics = metrics.New(a.reg)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-textfile", "",
		"write the run's metrics in Prometheus text format to this file")

	root.AddCommand(
		a.newMigrateCmd(),
		a.newCreateUserCmd(),
		a.newImportCountryPlansCmd(),
		a.newScrapeAppealDocsCmd(),
		a.newTranslateCmd(),
		a.newOpsLearningSummaryCmd(),
	)

	// cobra skips PersistentPostRun when RunE fails
	for _, cmd := range root.Commands() {
		run := cmd.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if err != nil {
				a.logr.Error("command failed", zap.Error(err))
				_ = a.close()
			}
			return err
		}
	}
	return root
}

func (a *app) database() (*bun.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.New(a.cfg.DatabaseURL, a.cfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) close() error {
	if a.logr == nil {
		return nil
	}
	defer a.logr.Sync()

	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	if a.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		a.metricsFile = ""
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
