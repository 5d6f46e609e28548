//go:build linux

/*
PodDock Core
Copyright (c) 2026 The PodDock Project Contributors.

This file is part of PodDock Core.

PodDock Core is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

PodDock Core is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with PodDock Core.  If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/PodDockProject/poddock-core/pkg/config"
	"github.com/PodDockProject/poddock-core/pkg/helpers"
	"github.com/PodDockProject/poddock-core/pkg/hotplug"
	"github.com/PodDockProject/poddock-core/pkg/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultConfigDir = "/etc/poddock"
	defaultLogDir    = "/var/log/poddock"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String("config-dir", defaultConfigDir, "directory containing config.toml")
	logDir := flag.String("log-dir", defaultLogDir, "directory for log files")
	showVersion := flag.Bool("version", false, "print version and exit")
	console := flag.Bool("console", false, "also log to stderr")
	dryRun := flag.Bool("dry-run", false, "log queue events without syncing")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", config.AppName, config.AppVersion)
		return nil
	}

	var logWriters []io.Writer
	if *console {
		logWriters = []io.Writer{os.Stderr}
	}
	if err := helpers.InitLogging(*logDir, logWriters); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	cfg, err := config.NewConfig(*configDir, config.BaseDefaults)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	source, err := hotplug.NewUdevSource()
	if err != nil {
		log.Error().Err(err).Msg("failed to open udev monitor")
		return fmt.Errorf("failed to open udev monitor: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := service.New(cfg, source, service.WithDryRun(*dryRun))
	if err := svc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("service failed")
		return err
	}
	return nil
}
