// Command verifier serves a directory, opens its index page in headless Chrome
// and checks that the version indicator is visible. It exits 0 when it is, 1
// when it is not, and 2 when the check could not run.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-verifier/internal/config"
	"go-verifier/internal/storage"
	"go-verifier/internal/verify"
	"go-verifier/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitError  = 2

	dbAttempts = 3
	dbDelay    = 2 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("could not load config: %v", err)
		return exitError
	}

	logger.Setup(cfg.Environment)
	defer logger.Sync()

	ctx := logger.WithLogger(context.Background(), logger.Get(context.Background()).Named("verifier"))
	err = newRootCommand(cfg).ExecuteContext(ctx)
	if err != nil && !errors.Is(err, verify.ErrFailed) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, verify.ErrFailed):
		return exitFailed
	default:
		return exitError
	}
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "verifier",
		Short:         "Check that the version indicator is visible on the served page",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var recorder verify.Recorder
			if cfg.DatabaseURL != "" {
				sink, closeDB := openRecorder(ctx, cfg.DatabaseURL)
				defer closeDB()
				if sink != nil {
					recorder = sink
				}
			}

			result, err := verify.New(cfg, recorder).Run(ctx)
			if err != nil {
				logger.Error(ctx, "verification could not run", zap.Error(err))
				return err
			}

			verify.Report(cmd.OutOrStdout(), result)
			if !result.Passed() {
				return verify.ErrFailed
			}
			return nil
		},
	}

	bindFlags(cmd, cfg)
	return cmd
}

// bindFlags lets flags override values that came from the environment.
func bindFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	f.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port for the static server")
	f.StringVarP(&cfg.ServeDir, "dir", "d", cfg.ServeDir, "directory to serve")
	f.StringVar(&cfg.PagePath, "path", cfg.PagePath, "page to open")
	f.StringVar(&cfg.Selector, "selector", cfg.Selector, "CSS selector of indicator candidates")
	f.StringVarP(&cfg.ExpectedVersion, "expect", "e", cfg.ExpectedVersion, "version text that must be visible")
	f.StringVarP(&cfg.ScreenshotPath, "screenshot", "o", cfg.ScreenshotPath, "screenshot output file")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "budget for the browser")
	f.StringVar(&cfg.ChromePath, "chrome", cfg.ChromePath, "Chrome binary, empty to auto-detect")

	headed := !cfg.Headless
	f.BoolVar(&headed, "headed", headed, "show the browser window")
	cmd.PreRun = func(*cobra.Command, []string) { cfg.Headless = !headed }
}

// openRecorder connects to Postgres for result recording. A database problem
// is logged and the run continues without recording.
func openRecorder(ctx context.Context, dsn string) (*storage.ResultSink, func()) {
	db, err := storage.Open(ctx, dsn, dbAttempts, dbDelay, logger.Get(ctx))
	if err != nil {
		logger.Warn(ctx, "results will not be recorded", zap.Error(err))
		return nil, func() {}
	}

	sink := storage.NewResultSink(db)
	if err := sink.EnsureSchema(ctx); err != nil {
		logger.Warn(ctx, "results will not be recorded", zap.Error(err))
		db.Close()
		return nil, func() {}
	}
	return sink, func() { db.Close() }
}
