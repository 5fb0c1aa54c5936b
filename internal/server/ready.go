package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// WaitReady polls probeURL until it answers with a status below 500 or ctx ends.
// Probes are paced by a limiter: one immediately, then one per interval.
func WaitReady(ctx context.Context, probeURL string, interval time.Duration) error {
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	client := &http.Client{Timeout: 2 * time.Second}

	var lastErr error
	for {
		if err := limiter.Wait(ctx); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return fmt.Errorf("server at %s not ready: %w", probeURL, lastErr)
		}

		lastErr = probe(ctx, client, probeURL)
		if lastErr == nil {
			return nil
		}
	}
}

func probe(ctx context.Context, client *http.Client, probeURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}
