/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
)

// PostgreSQL SQLSTATE codes for transient errors that should be retried.
const (
	sqlstateDeadlockDetected    = "40P01"
	sqlstateSerializationFailed = "40001"
	sqlstateStatementTimeout    = "57014"
	sqlstateAdminShutdown       = "57P01"
)

const (
	defaultMaxAttempts = 3
	defaultBaseBackoff = 150 * time.Millisecond
)

const createLastSeenTable = `
CREATE TABLE IF NOT EXISTS devmon_endpoint_state (
	address    TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	mode       TEXT NOT NULL DEFAULT 'unattached',
	last_seen  TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertReachability = `
INSERT INTO devmon_endpoint_state (address, status, last_seen, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (address) DO UPDATE SET
	status     = EXCLUDED.status,
	last_seen  = EXCLUDED.last_seen,
	updated_at = EXCLUDED.updated_at`

const upsertMode = `
INSERT INTO devmon_endpoint_state (address, status, mode, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (address) DO UPDATE SET
	mode       = EXCLUDED.mode,
	updated_at = EXCLUDED.updated_at`

// Execer is the subset of pgxpool.Pool the recorder needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// LastSeenRecorder keeps one row per endpoint holding its latest status,
// mode and last-seen timestamp. No history is kept.
type LastSeenRecorder struct {
	exec        Execer
	logger      logger.Logger
	maxAttempts int
	baseBackoff time.Duration
}

func NewLastSeenRecorder(exec Execer, log logger.Logger) (*LastSeenRecorder, error) {
	if exec == nil {
		return nil, errNilExecer
	}

	return &LastSeenRecorder{
		exec:        exec,
		logger:      logger.Component(log, "last-seen"),
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
	}, nil
}

// EnsureSchema creates the state table when it is missing.
func (r *LastSeenRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.exec.Exec(ctx, createLastSeenTable); err != nil {
		return fmt.Errorf("db: failed to create endpoint state table: %w", err)
	}

	return nil
}

// RecordReachability upserts the endpoint's status and last-seen time.
func (r *LastSeenRecorder) RecordReachability(ctx context.Context, change models.ReachabilityChange) error {
	lastSeen := change.Timestamp
	if change.Endpoint != nil {
		lastSeen = change.Endpoint.LastSeen()
	}

	return r.execWithRetry(ctx, "reachability", upsertReachability,
		change.Address, change.New.String(), lastSeen.UTC())
}

// RecordMode upserts the endpoint's mode.
func (r *LastSeenRecorder) RecordMode(ctx context.Context, change models.ModeChange) error {
	status := models.StatusUnknown
	if change.Endpoint != nil {
		status = change.Endpoint.Status()
	}

	return r.execWithRetry(ctx, "mode", upsertMode,
		change.Address, status.String(), change.New.String())
}

func (r *LastSeenRecorder) execWithRetry(ctx context.Context, name, sql string, args ...any) error {
	attempt := 0

	op := func() (struct{}, error) {
		attempt++

		_, err := r.exec.Exec(ctx, sql, args...)
		if err == nil {
			return struct{}{}, nil
		}

		code, transient := classifyError(err)
		if !transient {
			return struct{}{}, backoff.Permanent(err)
		}

		r.logger.Warn().
			Err(err).
			Str("sqlstate", code).
			Str("statement", name).
			Int("attempt", attempt).
			Msg("Transient database error, retrying")

		return struct{}{}, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.baseBackoff

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(r.maxAttempts)), //nolint:gosec // small positive constant
	)
	if err != nil {
		return fmt.Errorf("db: %s upsert failed: %w", name, err)
	}

	return nil
}

// classifyError returns the SQLSTATE of err and whether it is worth retrying.
func classifyError(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}

	switch pgErr.Code {
	case sqlstateDeadlockDetected, sqlstateSerializationFailed,
		sqlstateStatementTimeout, sqlstateAdminShutdown:
		return pgErr.Code, true
	}

	return pgErr.Code, false
}
