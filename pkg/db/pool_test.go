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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/devmon/pkg/models"
)

func TestBuildConnURLDefaultsSSLModeDisable(t *testing.T) {
	t.Parallel()

	u, err := buildConnURL(&models.DatabaseConfig{
		Host:            "pg",
		Database:        "devmon",
		Username:        "devmon",
		Password:        "s3cret",
		ApplicationName: "devmon",
	})
	require.NoError(t, err)

	assert.Equal(t, "pg:5432", u.Host)
	assert.Equal(t, "/devmon", u.Path)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "devmon", u.Query().Get("application_name"))

	pass, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "s3cret", pass)
}

func TestBuildConnURLDefaultsVerifyFullWithTLS(t *testing.T) {
	t.Parallel()

	u, err := buildConnURL(&models.DatabaseConfig{
		Host:     "pg",
		Port:     6432,
		Database: "devmon",
		TLS:      &models.TLSConfig{CertFile: "c", KeyFile: "k", CAFile: "ca"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pg:6432", u.Host)
	assert.Equal(t, "verify-full", u.Query().Get("sslmode"))
}

func TestBuildConnURLRejectsTLSWithSSLModeDisable(t *testing.T) {
	t.Parallel()

	_, err := buildConnURL(&models.DatabaseConfig{
		Host:     "pg",
		Database: "devmon",
		SSLMode:  "disable",
		TLS:      &models.TLSConfig{CertFile: "c", KeyFile: "k", CAFile: "ca"},
	})
	require.ErrorIs(t, err, ErrTLSDisabled)
}

func TestBuildConnURLUsesRuntimeParamsSSLMode(t *testing.T) {
	t.Parallel()

	u, err := buildConnURL(&models.DatabaseConfig{
		Host:          "pg",
		Database:      "devmon",
		RuntimeParams: map[string]string{"sslmode": "Verify-CA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "verify-ca", u.Query().Get("sslmode"))
}

func TestBuildTLSConfigRequiresFiles(t *testing.T) {
	t.Parallel()

	cfg, err := buildTLSConfig(&models.DatabaseConfig{})
	require.NoError(t, err)
	assert.Nil(t, cfg)

	_, err = buildTLSConfig(&models.DatabaseConfig{TLS: &models.TLSConfig{CertFile: "c"}})
	require.ErrorIs(t, err, ErrTLSFilesRequired)
}
