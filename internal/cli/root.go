package cli

import (
	"context"
	"time"

	"github.com/lazypower/freqdirs/internal/config"
	"github.com/lazypower/freqdirs/internal/logger"
	"github.com/lazypower/freqdirs/internal/metrics"
	"github.com/lazypower/freqdirs/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "freqdirs",
	Short: "Rank directories by how often and how recently you visit them",
	Long: "freqdirs remembers the directories you visit and lists them by frecency. " +
		"Hook it into your shell with `freqdirs init <shell>`.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var stateDirFlag string

// app is the per-invocation environment built from config.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	metrics metrics.Collector
}

var rt *app

func Execute() error {
	err := rootCmd.Execute()
	teardown()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&stateDirFlag, "state-dir", "s", "",
		"directory holding the database (default $FREQDIRS_STATE_DIR or $XDG_STATE_HOME/freqdirs)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(initCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if stateDirFlag != "" {
		cfg.StateDir = stateDirFlag
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Pretty: cfg.Log.Pretty,
		Out:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	rt = &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(cfg.Metrics.File),
	}
	return nil
}

func teardown() {
	if rt == nil {
		return
	}
	if err := rt.metrics.Flush(); err != nil {
		rt.log.Warn().Err(err).Msg("flush metrics")
	}
	rt.log.Close()
	rt = nil
}

// withSession opens the store, runs fn, and closes the store before
// returning. The outcome is recorded as operation op.
func withSession(cmd *cobra.Command, op string, fn func(ctx context.Context, s *store.Session) error) error {
	ctx := cmd.Context()
	start := time.Now()

	err := runSession(ctx, fn)

	status := "success"
	if err != nil {
		status = store.Classify(err)
		rt.log.Error().Err(err).Str("operation", op).Str("error_type", status).Msg("operation failed")
	}
	rt.metrics.RecordOperation(ctx, op, status, time.Since(start))
	return err
}

func runSession(ctx context.Context, fn func(ctx context.Context, s *store.Session) error) (err error) {
	dir, err := rt.cfg.ResolveStateDir()
	if err != nil {
		return err
	}

	s, err := store.Open(ctx, dir, store.WithLogger(rt.log.Zerolog()))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	if err := fn(ctx, s); err != nil {
		return err
	}

	if rt.cfg.Metrics.File != "" {
		recordGauges(ctx, s)
	}
	return nil
}

// recordGauges refreshes the store gauges. The operation has already
// committed, so a failure here is logged and does not change its outcome.
func recordGauges(ctx context.Context, s *store.Session) {
	st, err := s.Stats(ctx)
	if err != nil {
		rt.log.Warn().Err(err).Msg("read store stats for metrics")
		return
	}
	rt.metrics.SetTrackedPaths(ctx, st.Paths, st.LivePaths)
	rt.metrics.SetSchemaVersion(ctx, st.SchemaVersion)
}
