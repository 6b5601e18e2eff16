// Package cmd provides shared bootstrap helpers for the sporing binary.
package cmd

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
)

const connectRetryInterval = 5 * time.Second

// ConnectPostgres opens the database and pings it until it answers.
// Connectivity failures are retried indefinitely on a constant interval
// since the database may simply not be up yet; any other failure means
// misconfiguration and is returned immediately.
func ConnectPostgres(ctx context.Context, logger *slog.Logger, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(connectRetryInterval), ctx)

	err = backoff.Retry(func() error {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}

		if !isConnectivityError(err) {
			return backoff.Permanent(err)
		}

		logger.WarnContext(ctx, "Database not reachable yet, retrying", "error", err)

		return err
	}, bo)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return db, nil
}

// isConnectivityError classifies ping failures that resolve themselves once
// the database comes up. Anything else (bad credentials, unknown database,
// malformed URL) will not improve with waiting.
func isConnectivityError(err error) bool {
	msg := strings.ToLower(err.Error())

	for _, transient := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"i/o timeout",
		"network is unreachable",
		"the database system is starting up",
		"eof",
	} {
		if strings.Contains(msg, transient) {
			return true
		}
	}

	return false
}
