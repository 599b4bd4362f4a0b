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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/carverauto/devmon/pkg/config"
	"github.com/carverauto/devmon/pkg/lifecycle"
	"github.com/carverauto/devmon/pkg/service"
	"github.com/carverauto/devmon/pkg/version"
)

var errFailedToLoadConfig = errors.New("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/devmon/devmon.yaml", "Path to devmon config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Fprintln(os.Stdout, version.GetFullVersion())
		return nil
	}

	ctx := context.Background()

	var cfg service.Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	if err := lifecycle.InitializeLogger(cfg.Logging); err != nil {
		return err
	}

	devmonLogger, err := lifecycle.CreateLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	svc, err := service.New(&cfg, devmonLogger)
	if err != nil {
		return err
	}
	defer svc.Close()

	devmonLogger.Info().Str("config", *configPath).Str("version", version.GetFullVersion()).Msg("Starting devmon")

	return lifecycle.RunService(ctx, svc, devmonLogger, time.Duration(cfg.ShutdownTimeout))
}
