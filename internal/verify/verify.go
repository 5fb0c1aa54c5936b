// Package verify runs the version indicator check end to end: serve the
// directory, open the page in a headless browser, find the indicator, take
// a screenshot and tear everything down.
package verify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go-verifier/internal/browser"
	"go-verifier/internal/config"
	"go-verifier/internal/page"
	"go-verifier/internal/server"
	"go-verifier/pkg/logger"
	"go-verifier/pkg/models"

	"go.uber.org/zap"
)

const (
	userAgent       = "go-verifier/1.0"
	shutdownTimeout = 5 * time.Second
	recordTimeout   = 10 * time.Second
)

// ErrFailed is returned by callers when the run completed but the indicator
// was not visible with the expected text.
var ErrFailed = errors.New("verification failed")

// Recorder persists finished runs. It is optional.
type Recorder interface {
	Save(ctx context.Context, r *models.Result) error
}

type Verifier struct {
	cfg      *config.Config
	fetcher  *page.Fetcher
	recorder Recorder
}

func New(cfg *config.Config, recorder Recorder) *Verifier {
	return &Verifier{
		cfg:      cfg,
		fetcher:  page.NewFetcher(userAgent, cfg.WarmupTimeout),
		recorder: recorder,
	}
}

// Run performs one verification. Errors mean the check could not be carried
// out; a completed check that did not pass is a Result with Passed false.
// The server and browser are released on every return path.
func (v *Verifier) Run(ctx context.Context) (*models.Result, error) {
	started := time.Now()

	srv := server.New(v.cfg.ServeDir, net.JoinHostPort(v.cfg.Host, strconv.Itoa(v.cfg.Port)), logger.Get(ctx))
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("start static server: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			logger.Warn(ctx, "could not stop static server", zap.Error(err))
		}
	}()

	target := "http://" + srv.Addr() + v.cfg.PagePath
	ctx = logger.WithFields(ctx, zap.String("url", target))

	warmCtx, cancelWarm := context.WithTimeout(ctx, v.cfg.WarmupTimeout)
	err := server.WaitReady(warmCtx, target, v.cfg.PollInterval)
	cancelWarm()
	if err != nil {
		return nil, err
	}

	result := &models.Result{
		URL:            target,
		Expected:       v.cfg.ExpectedVersion,
		ScreenshotPath: v.cfg.ScreenshotPath,
		StartedAt:      started,
	}

	static, err := v.fetcher.Parse(ctx, target)
	switch {
	case err != nil:
		logger.Warn(ctx, "static fetch failed", zap.Error(err))
	default:
		result.Page = &static
		if static.StatusCode >= http.StatusBadRequest {
			logger.Warn(ctx, "page returned an error status", zap.Int("status", static.StatusCode))
		}
	}

	runCtx, cancelRun := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancelRun()

	logger.Info(ctx, "launching browser", zap.Bool("headless", v.cfg.Headless))
	session, err := browser.Open(runCtx, logger.Get(ctx), browser.Options(v.cfg.Headless, v.cfg.ChromePath)...)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := session.Navigate(target); err != nil {
		return nil, err
	}

	indicator, err := session.Locate(v.cfg.Selector, v.cfg.ExpectedVersion, v.cfg.LocateTimeout)
	if err != nil {
		return nil, err
	}
	result.Indicator = indicator
	logger.Info(ctx, "indicator located",
		zap.Int("matches", indicator.Count),
		zap.Bool("visible", indicator.Visible),
	)

	if err := session.Screenshot(v.cfg.ScreenshotPath); err != nil {
		return nil, err
	}
	result.Duration = time.Since(started)

	v.record(ctx, result)
	return result, nil
}

func (v *Verifier) record(ctx context.Context, r *models.Result) {
	if v.recorder == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := v.recorder.Save(saveCtx, r); err != nil {
		logger.Warn(ctx, "could not record result", zap.Error(err))
		return
	}
	logger.Debug(ctx, "result recorded", zap.Bool("passed", r.Passed()))
}
