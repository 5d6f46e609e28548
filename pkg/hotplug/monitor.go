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

package hotplug

import (
	"context"
	"errors"
	"strings"

	"github.com/PodDockProject/poddock-core/pkg/blockdev"
	"github.com/PodDockProject/poddock-core/pkg/config"
	"github.com/PodDockProject/poddock-core/pkg/mount"
	"github.com/rs/zerolog/log"
)

// SyncFunc is the external library-sync callback, invoked once per
// successful, verified mount with the mount point path.
type SyncFunc func(mountPoint string) error

// Monitor consumes hotplug events for the configured device identity
// and drives resolve -> mount -> verify -> sync on attach and unmount
// on detach. The mount is deliberately left in place across a sync and
// until detach, so each docking cycle pays for one privileged mount.
type Monitor struct {
	resolver     *blockdev.Resolver
	mounts       *mount.Manager
	onMountReady SyncFunc
	identity     config.USB
}

// NewMonitor creates a monitor matching the given USB identity.
func NewMonitor(
	identity config.USB,
	resolver *blockdev.Resolver,
	mounts *mount.Manager,
	onMountReady SyncFunc,
) *Monitor {
	return &Monitor{
		identity:     identity,
		resolver:     resolver,
		mounts:       mounts,
		onMountReady: onMountReady,
	}
}

// Run consumes events until the channel closes or ctx is cancelled.
// Individual event failures are logged and never terminate the loop;
// the dock keeps listening for future attach/detach cycles.
func (m *Monitor) Run(ctx context.Context, events <-chan Event) {
	log.Info().Msgf("listening for player usb events (%s:%s)",
		m.identity.VendorID, m.identity.ProductID)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				log.Info().Msg("hotplug event source closed")
				return
			}
			m.handle(ctx, ev)
		}
	}
}

func (m *Monitor) handle(ctx context.Context, ev Event) {
	if !m.matches(ev) {
		return
	}
	log.Debug().Msgf("event %s %s for %s", ev.Action, ev.DevType, ev.Serial)

	switch {
	case ev.Action == ActionAttach &&
		ev.DevType == DevTypePartition &&
		blockdev.IsFATType(ev.FSType):
		m.attach(ctx, ev)
	case ev.Action == ActionDetach && ev.DevType == DevTypeDisk:
		log.Info().Msgf("player %s detached", ev.Serial)
		if err := m.mounts.Unmount(ctx); err != nil {
			log.Error().Err(err).Msg("unmount after detach failed")
		}
	}
}

func (m *Monitor) matches(ev Event) bool {
	return strings.EqualFold(ev.VendorID, m.identity.VendorID) &&
		strings.EqualFold(ev.ProductID, m.identity.ProductID)
}

func (m *Monitor) attach(ctx context.Context, ev Event) {
	// a device with several FAT partitions emits one event per
	// partition; the first one owns the docking cycle
	if m.mounts.Connected() {
		log.Debug().Msgf("player already mounted, ignoring attach for %s", ev.Node)
		return
	}
	log.Info().Msgf("player %s attached on %s", ev.Serial, ev.Node)

	part, ok, err := m.resolver.Resolve(ctx, ev.Parent())
	if err != nil {
		log.Error().Err(err).Msgf("failed to resolve data partition on %s", ev.Parent())
		return
	}
	if !ok {
		log.Info().Msgf("no FAT data partition found on %s", ev.Parent())
		return
	}

	// lsblk can report the partition before udev settles its /dev node
	if !m.resolver.WaitForDevice(ctx, part.Node) {
		log.Error().Msgf("device node %s never appeared", part.Node)
		return
	}

	if err := m.mounts.Mount(ctx, part.Node); err != nil {
		if !errors.Is(err, mount.ErrNeedsCredentials) {
			log.Error().Err(err).Msgf("failed to mount %s", part.Node)
		}
		// credential failures are already logged as configuration errors
		return
	}

	if !m.mounts.Verify() {
		return
	}

	m.sync()
}

// sync invokes the external callback. Panics and errors are contained
// here so a broken sync can never take down the monitor loop.
func (m *Monitor) sync() {
	if m.onMountReady == nil {
		return
	}

	mountPoint := m.mounts.MountPoint()
	m.mounts.BeginSync()
	defer m.mounts.EndSync()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("library sync panicked: %v", r)
		}
	}()

	log.Info().Msgf("starting library sync at %s", mountPoint)
	if err := m.onMountReady(mountPoint); err != nil {
		log.Error().Err(err).Msg("library sync failed")
		return
	}
	log.Info().Msg("library sync finished")
}
