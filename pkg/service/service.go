// PodDock Core
// Copyright (c) 2026 The PodDock Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of PodDock Core.
//
// PodDock Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// PodDock Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with PodDock Core.  If not, see <http://www.gnu.org/licenses/>.

// Package service assembles the dock daemon: serial control link,
// hotplug monitor, mount lifecycle and sync-queue watcher.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PodDockProject/poddock-core/pkg/aap"
	"github.com/PodDockProject/poddock-core/pkg/blockdev"
	"github.com/PodDockProject/poddock-core/pkg/config"
	"github.com/PodDockProject/poddock-core/pkg/helpers/command"
	"github.com/PodDockProject/poddock-core/pkg/hotplug"
	"github.com/PodDockProject/poddock-core/pkg/mount"
	"github.com/PodDockProject/poddock-core/pkg/watcher"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// unmountTimeout bounds the best-effort unmount during shutdown, which
// runs after the service context is already cancelled.
const unmountTimeout = 10 * time.Second

// EventSource produces the hotplug event stream consumed by the
// monitor. The udev netlink source is the production implementation.
type EventSource interface {
	Events(ctx context.Context) (<-chan hotplug.Event, error)
}

// Service owns every long-running component of the dock daemon.
type Service struct {
	cfg           *config.Instance
	source        EventSource
	exec          command.Executor
	link          *aap.Link
	controller    *aap.Controller
	resolver      *blockdev.Resolver
	mounts        *mount.Manager
	monitor       *hotplug.Monitor
	queue         *watcher.Watcher
	onMountReady  hotplug.SyncFunc
	onQueueChange func() error
	dryRun        bool
}

// Option adjusts service assembly.
type Option func(*Service)

// WithExecutor replaces the system command executor.
func WithExecutor(exec command.Executor) Option {
	return func(s *Service) { s.exec = exec }
}

// WithOnMountReady replaces the library sync invoked after a verified
// mount. The default drains the sync queue handler once.
func WithOnMountReady(fn hotplug.SyncFunc) Option {
	return func(s *Service) { s.onMountReady = fn }
}

// WithOnQueueChange replaces the queue sync handler. The default only
// reports what is waiting; actual library writes are the business of
// an external sync tool.
func WithOnQueueChange(fn func() error) Option {
	return func(s *Service) { s.onQueueChange = fn }
}

// WithDryRun makes the queue watcher log instead of syncing.
func WithDryRun(dryRun bool) Option {
	return func(s *Service) { s.dryRun = dryRun }
}

// New assembles a service from configuration. Nothing touches the
// system until Run.
func New(cfg *config.Instance, source EventSource, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		source: source,
		exec:   &command.RealExecutor{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.onQueueChange == nil {
		s.onQueueChange = s.reportQueue
	}
	if s.onMountReady == nil {
		s.onMountReady = func(mountPoint string) error {
			log.Info().Msgf("player storage ready at %s", mountPoint)
			return s.onQueueChange()
		}
	}

	s.link = aap.NewLink(cfg.SerialPort(), cfg.SerialBaudRate())
	s.controller = aap.NewController(s.link)
	s.resolver = blockdev.NewResolver(s.exec)
	s.mounts = mount.NewManager(s.exec, cfg.MountConfig())
	s.monitor = hotplug.NewMonitor(cfg.USBIdentity(), s.resolver, s.mounts, s.onMountReady)
	s.queue = watcher.New(cfg.QueueDir(), s.mounts.Connected, s.onQueueChange,
		watcher.WithDryRun(s.dryRun))
	return s
}

// Controller returns the playback controller for the docked player.
func (s *Service) Controller() *aap.Controller {
	return s.controller
}

// Mounts returns the mount manager, for status inspection.
func (s *Service) Mounts() *mount.Manager {
	return s.mounts
}

// Run starts the monitor and queue watcher and blocks until ctx is
// cancelled or a component fails, then releases the serial link and
// any live mount.
func (s *Service) Run(ctx context.Context) error {
	log.Info().Msgf("starting %s v%s", config.AppName, config.AppVersion)
	log.Info().Msgf("device id: %s", s.cfg.DeviceID())

	events, err := s.source.Events(ctx)
	if err != nil {
		return fmt.Errorf("failed to start hotplug event source: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.monitor.Run(ctx, events)
		if ctx.Err() == nil {
			// source died underneath us; exit so the supervisor restarts
			return errors.New("hotplug event source closed")
		}
		return nil
	})
	g.Go(func() error {
		return s.queue.Run(ctx)
	})

	err = g.Wait()
	s.shutdown()
	if err != nil {
		return fmt.Errorf("service stopped: %w", err)
	}
	log.Info().Msg("service stopped")
	return nil
}

// shutdown releases held resources. It runs after the run context is
// cancelled, so the unmount gets its own deadline.
func (s *Service) shutdown() {
	if err := s.link.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close serial link")
	}

	// Verifying means mounted but unverified; that still needs release
	switch s.mounts.State().Status {
	case mount.StatusVerifying, mount.StatusMounted, mount.StatusSyncing:
	default:
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), unmountTimeout)
	defer cancel()
	if err := s.mounts.Unmount(ctx); err != nil {
		log.Error().Err(err).Msg("failed to unmount player during shutdown")
	}
}

// reportQueue is the default queue handler: it counts what is waiting
// so operators can see the queue drain when an external sync runs.
func (s *Service) reportQueue() error {
	entries, err := os.ReadDir(s.cfg.QueueDir())
	if err != nil {
		return fmt.Errorf("failed to read queue dir %s: %w", s.cfg.QueueDir(), err)
	}

	queued := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		queued++
	}
	log.Info().Msgf("%d queued files awaiting sync in %s", queued, s.cfg.QueueDir())
	return nil
}
