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

import "errors"

var (
	// ErrTLSFilesRequired is returned when a TLS block is missing a certificate path.
	ErrTLSFilesRequired = errors.New("database tls: cert_file, key_file, and ca_file are required")
	// ErrTLSDisabled is returned when TLS files are configured together with sslmode=disable.
	ErrTLSDisabled = errors.New("database tls: tls configured but sslmode is disable")
	// ErrCAParsingFailed is returned when the CA bundle holds no certificates.
	ErrCAParsingFailed = errors.New("database tls: unable to append CA certificate")
	// ErrDatabaseConfigRequired is returned when no database block is configured.
	ErrDatabaseConfigRequired = errors.New("database config is required")
	errNilExecer              = errors.New("database executor is required")
)
