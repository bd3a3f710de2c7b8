package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unklstewy/flightarcs/pkg/config"
	"github.com/unklstewy/flightarcs/pkg/logger"
)

// maxReconnectDelay caps the exponential backoff between attempts.
const maxReconnectDelay = 60 * time.Second

// ReconnectWithRetry attempts to connect to the database with exponential backoff.
//
// Parameters:
//   - cfg: Database configuration
//   - maxRetries: Maximum number of connection attempts (0 = until ctx is done)
//   - initialDelay: Initial wait time between attempts
//
// Returns: Connected database or the last error once attempts are exhausted
func ReconnectWithRetry(ctx context.Context, cfg config.DatabaseConfig, maxRetries int, initialDelay time.Duration, log logger.Logger) (*DB, error) {
	delay := initialDelay
	attempt := 0

	for {
		attempt++
		log.Debug("Database connection attempt", "attempt", attempt, "host", cfg.Host)

		db, err := Connect(ctx, cfg)
		if err == nil {
			if attempt > 1 {
				log.Info("Database reconnected", "attempts", attempt)
			}
			return db, nil
		}

		if maxRetries > 0 && attempt >= maxRetries {
			log.Error("Database unavailable", "attempts", attempt, "error", err)
			return nil, err
		}

		log.Warn("Database connection failed", "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("reconnect cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// HealthCheck reports whether the database answers a trivial query.
func HealthCheck(ctx context.Context, db *DB) bool {
	if db == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return false
	}
	return result == 1
}

// connErrors are message fragments of errors worth retrying.
var connErrors = []string{
	"connection refused",
	"broken pipe",
	"no connection",
	"connection reset",
	"eof",
	"timeout",
}

// IsConnectionError reports whether err looks like a dropped or refused connection.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range connErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// WithRetry executes a database operation, retrying only connection failures.
func WithRetry(ctx context.Context, operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsConnectionError(err) {
			return err
		}

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}

	return lastErr
}
