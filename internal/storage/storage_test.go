package storage

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"go-verifier/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_GivesUpAfterAttempts(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	dsn := "postgres://verifier:verifier@" + addr + "/verifier?sslmode=disable&connect_timeout=1"

	start := time.Now()
	db, err := Open(context.Background(), dsn, 2, 10*time.Millisecond, nil)
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestOpen_StopsOnContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = Open(ctx, "postgres://verifier@"+addr+"/verifier?sslmode=disable", 100, time.Second, nil)
	require.Error(t, err)
}

// TestResultSink_Save needs a reachable Postgres in TEST_DB_URL.
func TestResultSink_Save(t *testing.T) {
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn, 3, time.Second, nil)
	require.NoError(t, err)
	defer db.Close()

	sink := NewResultSink(db)
	require.NoError(t, sink.EnsureSchema(ctx))
	require.NoError(t, sink.EnsureSchema(ctx), "schema creation must be repeatable")

	result := &models.Result{
		URL:      "http://127.0.0.1:8002/index.html",
		Expected: "v1.1.0",
		Indicator: models.Indicator{
			Selector: "div",
			Count:    2,
			Visible:  true,
			Text:     "v1.1.0",
		},
		ScreenshotPath: "version_indicator.png",
		Page:           &models.PageData{StatusCode: 200},
		StartedAt:      time.Now().UTC(),
		Duration:       1500 * time.Millisecond,
	}
	require.NoError(t, sink.Save(ctx, result))

	var passed bool
	var durationMs int64
	err = db.QueryRowContext(ctx,
		`SELECT passed, duration_ms FROM verifications WHERE url = $1 ORDER BY id DESC LIMIT 1`,
		result.URL,
	).Scan(&passed, &durationMs)
	require.NoError(t, err)
	assert.True(t, passed)
	assert.Equal(t, int64(1500), durationMs)

	result.Page = nil
	result.Indicator.Visible = false
	require.NoError(t, sink.Save(ctx, result), "missing static page data is stored as NULL")
}
