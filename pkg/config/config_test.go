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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carverauto/devmon/pkg/logger"
	"github.com/carverauto/devmon/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoEndpoints = errors.New("no endpoints")

type testProbeConfig struct {
	Interval models.Duration `json:"interval" yaml:"interval"`
	Port     int             `json:"port" yaml:"port"`
}

type testTLS struct {
	CAFile string `json:"ca_file" yaml:"ca_file"`
}

type testServiceConfig struct {
	ListenAddr string          `json:"listen_addr" yaml:"listen_addr"`
	Endpoints  []string        `json:"endpoints" yaml:"endpoints"`
	Probe      testProbeConfig `json:"probe" yaml:"probe"`
	TLS        *testTLS        `json:"tls" yaml:"tls"`
	Timeout    time.Duration   `json:"timeout" yaml:"timeout"`
	validated  bool
}

func (c *testServiceConfig) Validate() error {
	c.validated = true

	if len(c.Endpoints) == 0 {
		return errNoEndpoints
	}

	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateJSONFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, "devmon.json",
		`{"listen_addr":":8090","endpoints":["10.0.0.1"],"probe":{"interval":"2s","port":1502}}`)

	var cfg testServiceConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))
	assert.True(t, cfg.validated)
	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, 2*time.Second, time.Duration(cfg.Probe.Interval))
	assert.Equal(t, 1502, cfg.Probe.Port)
	assert.Nil(t, cfg.TLS)
}

func TestLoadAndValidateYAMLFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "devmon.yaml", `
listen_addr: ":9000"
endpoints:
  - 192.168.1.10
  - 192.168.1.11
probe:
  interval: 750ms
  port: 1600
`)

	var cfg testServiceConfig

	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))
	assert.Equal(t, []string{"192.168.1.10", "192.168.1.11"}, cfg.Endpoints)
	assert.Equal(t, 750*time.Millisecond, time.Duration(cfg.Probe.Interval))
}

func TestLoadAndValidateReturnsValidationError(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, "empty.json", `{"listen_addr":":8090"}`)

	var cfg testServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, errNoEndpoints)
}

func TestLoadAndValidateRejectsUnknownSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg testServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "ignored.json", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestLoadAndValidateRequiresPathForFiles(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	var cfg testServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errEmptyConfigPath)
}

func TestEnvConfigLoader(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "")
	t.Setenv("DEVMON_LISTEN_ADDR", ":7000")
	t.Setenv("DEVMON_ENDPOINTS", "10.1.0.1, 10.1.0.2,")
	t.Setenv("DEVMON_PROBE_INTERVAL", "3s")
	t.Setenv("DEVMON_PROBE_PORT", "not-a-number")
	t.Setenv("DEVMON_TIMEOUT", "250ms")

	cfg := testServiceConfig{Probe: testProbeConfig{Port: 1502}}

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, []string{"10.1.0.1", "10.1.0.2"}, cfg.Endpoints)
	assert.Equal(t, 3*time.Second, time.Duration(cfg.Probe.Interval))
	assert.Equal(t, 1502, cfg.Probe.Port, "invalid value keeps existing setting")
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Nil(t, cfg.TLS, "untouched optional section stays nil")
}

func TestEnvConfigLoaderPopulatesOptionalPointer(t *testing.T) {
	t.Setenv("APP_TLS_CA_FILE", "/etc/devmon/ca.pem")

	var cfg testServiceConfig

	loader := NewEnvConfigLoader(logger.NewTestLogger(), "APP_")
	require.NoError(t, loader.Load(context.Background(), "", &cfg))
	require.NotNil(t, cfg.TLS)
	assert.Equal(t, "/etc/devmon/ca.pem", cfg.TLS.CAFile)
}

func TestEnvConfigLoaderConfigJSON(t *testing.T) {
	t.Setenv("APP_CONFIG_JSON", `{"endpoints":["172.16.0.9"]}`)

	var cfg testServiceConfig

	loader := NewEnvConfigLoader(logger.NewTestLogger(), "APP_")
	require.NoError(t, loader.Load(context.Background(), "", &cfg))
	assert.Equal(t, []string{"172.16.0.9"}, cfg.Endpoints)
}

func TestEnvConfigLoaderRejectsNonPointer(t *testing.T) {
	t.Parallel()

	loader := NewEnvConfigLoader(logger.NewTestLogger(), "X_")
	require.ErrorIs(t, loader.Load(context.Background(), "", testServiceConfig{}), ErrDstMustBeNonNilPointer)

	s := "str"
	require.ErrorIs(t, loader.Load(context.Background(), "", &s), ErrDstMustBePointerToStruct)
}
