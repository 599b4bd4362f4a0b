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
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
)

var errSyntax = &pgconn.PgError{Code: "42601", Message: "syntax error"}

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	mu    sync.Mutex
	calls []execCall
	errs  []error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, execCall{sql: sql, args: args})

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]

		return pgconn.CommandTag{}, err
	}

	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func newTestRecorder(t *testing.T, exec Execer) *LastSeenRecorder {
	t.Helper()

	rec, err := NewLastSeenRecorder(exec, logger.NewTestLogger())
	require.NoError(t, err)

	rec.baseBackoff = time.Millisecond

	return rec
}

func TestRecordReachabilityUsesEndpointLastSeen(t *testing.T) {
	t.Parallel()

	exec := &fakeExecer{}
	rec := newTestRecorder(t, exec)

	seen := time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)
	ep := models.NewEndpoint("10.1.1.1")
	ep.SetStatus(models.StatusConnected, seen)

	err := rec.RecordReachability(context.Background(), models.ReachabilityChange{
		Address:   "10.1.1.1",
		Endpoint:  ep,
		Old:       models.StatusUnknown,
		New:       models.StatusConnected,
		Timestamp: seen.Add(time.Second),
	})
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, upsertReachability, exec.calls[0].sql)
	assert.Equal(t, []any{"10.1.1.1", "connected", seen}, exec.calls[0].args)
}

func TestRecordModeCarriesCurrentStatus(t *testing.T) {
	t.Parallel()

	exec := &fakeExecer{}
	rec := newTestRecorder(t, exec)

	ep := models.NewEndpoint("10.1.1.2")
	ep.SetStatus(models.StatusConnected, time.Now())

	require.NoError(t, rec.RecordMode(context.Background(), models.ModeChange{
		Address:  "10.1.1.2",
		Endpoint: ep,
		Old:      models.ModeUnattached,
		New:      models.ModeWireless,
	}))

	require.Len(t, exec.calls, 1)
	assert.Equal(t, upsertMode, exec.calls[0].sql)
	assert.Equal(t, []any{"10.1.1.2", "connected", "wireless"}, exec.calls[0].args)
}

func TestRecorderRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	exec := &fakeExecer{errs: []error{
		&pgconn.PgError{Code: sqlstateDeadlockDetected},
		&pgconn.PgError{Code: sqlstateSerializationFailed},
	}}
	rec := newTestRecorder(t, exec)

	require.NoError(t, rec.RecordReachability(context.Background(), models.ReachabilityChange{
		Address: "10.1.1.3",
		New:     models.StatusOffline,
	}))
	assert.Len(t, exec.calls, 3)
}

func TestRecorderGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	deadlock := &pgconn.PgError{Code: sqlstateDeadlockDetected}
	exec := &fakeExecer{errs: []error{deadlock, deadlock, deadlock, deadlock}}
	rec := newTestRecorder(t, exec)

	err := rec.RecordReachability(context.Background(), models.ReachabilityChange{Address: "10.1.1.4"})
	require.Error(t, err)

	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, sqlstateDeadlockDetected, pgErr.Code)
	assert.Len(t, exec.calls, defaultMaxAttempts)
}

func TestRecorderDoesNotRetryPermanentErrors(t *testing.T) {
	t.Parallel()

	exec := &fakeExecer{errs: []error{errSyntax}}
	rec := newTestRecorder(t, exec)

	err := rec.RecordMode(context.Background(), models.ModeChange{Address: "10.1.1.5"})
	require.ErrorIs(t, err, errSyntax)
	assert.Len(t, exec.calls, 1)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	exec := &fakeExecer{}
	rec := newTestRecorder(t, exec)

	require.NoError(t, rec.EnsureSchema(context.Background()))
	require.Len(t, exec.calls, 1)
	assert.Contains(t, exec.calls[0].sql, "CREATE TABLE IF NOT EXISTS devmon_endpoint_state")
}

func TestNewLastSeenRecorderRequiresExecer(t *testing.T) {
	t.Parallel()

	_, err := NewLastSeenRecorder(nil, nil)
	require.ErrorIs(t, err, errNilExecer)
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		code      string
		transient bool
	}{
		{"deadlock", &pgconn.PgError{Code: sqlstateDeadlockDetected}, sqlstateDeadlockDetected, true},
		{"statement timeout", &pgconn.PgError{Code: sqlstateStatementTimeout}, sqlstateStatementTimeout, true},
		{"syntax", errSyntax, "42601", false},
		{"plain", errors.New("boom"), "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			code, transient := classifyError(tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.transient, transient)
		})
	}
}
