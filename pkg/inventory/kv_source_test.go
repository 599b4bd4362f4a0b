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

package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/devmon/pkg/logger"
)

func TestKVSourceSyncsRegistry(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	js := newJetStream(t)

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: "endpoints"})
	require.NoError(t, err)

	_, err = kv.PutString(ctx, "10.0.0.1", "")
	require.NoError(t, err)

	reg := NewRegistry(nil, logger.NewTestLogger())

	source, err := OpenKVSource(ctx, js, "endpoints", reg, logger.NewTestLogger())
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)

	go func() { done <- source.Run(runCtx) }()

	select {
	case <-source.Synced():
	case <-time.After(10 * time.Second):
		t.Fatal("initial KV sync did not complete")
	}

	assert.Equal(t, []string{"10.0.0.1"}, reg.List())

	_, err = kv.PutString(ctx, "10.0.0.2", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := reg.Get("10.0.0.2")
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	// keys that are not addresses are ignored
	_, err = kv.PutString(ctx, "printer", "")
	require.NoError(t, err)

	require.NoError(t, kv.Delete(ctx, "10.0.0.1"))

	require.Eventually(t, func() bool {
		_, ok := reg.Get("10.0.0.1")
		return !ok
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, []string{"10.0.0.2"}, reg.List())

	stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOpenKVSourceCreatesBucket(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	js := newJetStream(t)

	_, err := OpenKVSource(ctx, js, "fresh-bucket", NewRegistry(nil, nil), logger.NewTestLogger())
	require.NoError(t, err)

	_, err = js.KeyValue(ctx, "fresh-bucket")
	require.NoError(t, err)
}

func TestNewKVSourceRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := NewKVSource(nil, NewRegistry(nil, nil), nil)
	require.ErrorIs(t, err, errNilKeyValue)
}

func TestAddJitterStaysWithinBounds(t *testing.T) {
	t.Parallel()

	for range 100 {
		d := addJitter(time.Second)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func newJetStream(t *testing.T) jetstream.JetStream {
	t.Helper()

	srv := runJetStreamServer(t)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	return js
}

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	require.Eventually(t, func() bool {
		return srv.JetStreamEnabled()
	}, 5*time.Second, 50*time.Millisecond, "embedded NATS server not ready for JetStream")

	t.Cleanup(srv.Shutdown)

	return srv
}
