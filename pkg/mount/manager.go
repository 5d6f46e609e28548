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

// Package mount owns the player's mount lifecycle: privileged mount and
// unmount, on-device layout verification, and the connection marker read
// by external collaborators.
package mount

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/PodDockProject/poddock-core/pkg/config"
	"github.com/PodDockProject/poddock-core/pkg/helpers/command"
	"github.com/PodDockProject/poddock-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Status is the device lifecycle state. Each attach/detach cycle runs
// Disconnected -> Attached -> Verifying -> Mounted (-> Syncing) ->
// Unmounting -> Disconnected.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusAttached     Status = "attached"
	StatusVerifying    Status = "verifying"
	StatusMounted      Status = "mounted"
	StatusSyncing      Status = "syncing"
	StatusUnmounting   Status = "unmounting"
)

// ErrNeedsCredentials classifies a privileged mount rejected for want of
// an interactive sudo credential. Retrying cannot succeed without
// operator intervention, so callers log it and give up.
var ErrNeedsCredentials = errors.New("mount requires passwordless sudo; add the poddock sudoers rule or run the service as root")

// Expected on-device directory layout, checked before the mount is
// trusted for synchronization.
const (
	controlDir  = "iPod_Control"
	databaseDir = "iPod_Control/iTunes"
	mediaDir    = "iPod_Control/Music"
)

// State is a snapshot of the mount lifecycle.
type State struct {
	Status          Status
	PartitionDevice string
	MountPoint      string
}

// Manager drives mount/verify/unmount for the single dock mount point.
// Transitions are serialized; there are never concurrent mounts of the
// same mount point.
type Manager struct {
	fs         afero.Fs
	exec       command.Executor
	cfg        config.Mount
	procMounts string
	state      State
	mu         syncutil.Mutex
}

// Option adjusts manager behavior, mostly for tests.
type Option func(*Manager)

// WithFilesystem replaces the filesystem used for marker and layout checks.
func WithFilesystem(fs afero.Fs) Option {
	return func(m *Manager) { m.fs = fs }
}

// WithProcMounts replaces the kernel mount table consulted for
// already-mounted detection.
func WithProcMounts(path string) Option {
	return func(m *Manager) { m.procMounts = path }
}

// NewManager creates a manager for the configured mount point using the
// real filesystem.
func NewManager(exec command.Executor, cfg config.Mount, opts ...Option) *Manager {
	m := &Manager{
		fs:         afero.NewOsFs(),
		exec:       exec,
		cfg:        cfg,
		procMounts: "/proc/self/mounts",
		state: State{
			Status:     StatusDisconnected,
			MountPoint: cfg.MountPoint,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a snapshot of the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// MountPoint returns the configured mount point path.
func (m *Manager) MountPoint() string {
	return m.cfg.MountPoint
}

// Connected reports whether the player is mounted and verified.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Status == StatusMounted || m.state.Status == StatusSyncing
}

// Mount mounts partition at the configured mount point. It is a no-op
// returning success if the point is already mounted. On success the
// state is Verifying; the mount must not be trusted until Verify passes.
func (m *Manager) Mount(ctx context.Context, partition string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isMounted() {
		log.Debug().Msgf("%s already mounted", m.cfg.MountPoint)
		return nil
	}

	m.state.Status = StatusAttached
	m.state.PartitionDevice = partition

	if err := m.fs.MkdirAll(m.cfg.MountPoint, 0o755); err != nil {
		return fmt.Errorf("failed to create mount point %s: %w", m.cfg.MountPoint, err)
	}

	log.Info().Msgf("mounting %s at %s", partition, m.cfg.MountPoint)
	opts := fmt.Sprintf("rw,uid=%d,gid=%d,umask=077,nosuid,nodev,noatime",
		m.cfg.UID, m.cfg.GID)
	name, args := command.Sudo("mount",
		"-t", m.cfg.Filesystem, "-o", opts, partition, m.cfg.MountPoint)
	if _, err := m.exec.Output(ctx, name, args...); err != nil {
		if isCredentialFailure(err) {
			log.Error().Msg(ErrNeedsCredentials.Error())
			return ErrNeedsCredentials
		}
		return fmt.Errorf("failed to mount %s: %w", partition, err)
	}

	m.state.Status = StatusVerifying
	return nil
}

// Verify checks that the mounted filesystem has the expected control,
// database and media directories. The connection marker is written only
// when all checks pass; an unverified mount is never reported connected.
func (m *Manager) Verify() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, dir := range []string{controlDir, databaseDir, mediaDir} {
		path := filepath.Join(m.cfg.MountPoint, dir)
		ok, err := afero.DirExists(m.fs, path)
		if err != nil || !ok {
			log.Warn().Msgf("mount verification failed: %s missing", path)
			return false
		}
	}

	m.writeMarker()
	m.state.Status = StatusMounted
	log.Info().Msgf("verified player mount at %s", m.cfg.MountPoint)
	return true
}

// BeginSync marks the mount as busy syncing. No-op unless mounted.
func (m *Manager) BeginSync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status == StatusMounted {
		m.state.Status = StatusSyncing
	}
}

// EndSync returns a syncing mount to the mounted state.
func (m *Manager) EndSync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status == StatusSyncing {
		m.state.Status = StatusMounted
	}
}

// Unmount detaches the mount point. The connection marker is removed
// first, whatever the outcome, so a stale "connected" signal never
// survives a detach. A graceful unmount failure escalates to a forced
// unmount once; if both fail the error is returned and state is left
// inconsistent rather than crashing the caller's loop.
func (m *Manager) Unmount(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeMarker()

	if !m.isMounted() {
		log.Debug().Msgf("%s not mounted", m.cfg.MountPoint)
		m.state = State{Status: StatusDisconnected, MountPoint: m.cfg.MountPoint}
		return nil
	}

	m.state.Status = StatusUnmounting
	log.Info().Msgf("unmounting %s", m.cfg.MountPoint)

	name, args := command.Sudo("umount", m.cfg.MountPoint)
	_, err := m.exec.Output(ctx, name, args...)
	if err != nil {
		log.Warn().Err(err).Msgf("graceful unmount of %s failed, forcing", m.cfg.MountPoint)
		name, args = command.Sudo("umount", "-f", m.cfg.MountPoint)
		if _, err = m.exec.Output(ctx, name, args...); err != nil {
			log.Error().Err(err).Msgf("forced unmount of %s failed", m.cfg.MountPoint)
			return fmt.Errorf("failed to unmount %s: %w", m.cfg.MountPoint, err)
		}
	}

	m.state = State{Status: StatusDisconnected, MountPoint: m.cfg.MountPoint}
	return nil
}

// isMounted reports whether the mount point is currently mounted.
// In-process state is checked first, then the kernel mount table, so
// pre-existing mounts survive a daemon restart. Callers must hold mu.
func (m *Manager) isMounted() bool {
	switch m.state.Status {
	case StatusVerifying, StatusMounted, StatusSyncing:
		return true
	case StatusDisconnected, StatusAttached, StatusUnmounting:
	}

	f, err := m.fs.Open(m.procMounts)
	if err != nil {
		return false
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close mounts table")
		}
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		// mount table escapes spaces as \040
		target := strings.ReplaceAll(fields[1], `\040`, " ")
		if target == m.cfg.MountPoint {
			return true
		}
	}
	return false
}

// writeMarker persists the "connected" signal for external processes.
// Callers must hold mu.
func (m *Manager) writeMarker() {
	if m.cfg.MarkerFile == "" {
		return
	}
	if err := m.fs.MkdirAll(filepath.Dir(m.cfg.MarkerFile), 0o755); err != nil {
		log.Warn().Err(err).Msg("failed to create marker directory")
		return
	}
	if err := afero.WriteFile(m.fs, m.cfg.MarkerFile, []byte("true"), 0o644); err != nil {
		log.Warn().Err(err).Msg("failed to write connection marker")
	}
}

// removeMarker deletes the connection marker if present. Callers must
// hold mu.
func (m *Manager) removeMarker() {
	if m.cfg.MarkerFile == "" {
		return
	}
	if err := m.fs.Remove(m.cfg.MarkerFile); err != nil && !errors.Is(err, afero.ErrFileNotFound) {
		if exists, _ := afero.Exists(m.fs, m.cfg.MarkerFile); exists {
			log.Warn().Err(err).Msg("failed to remove connection marker")
		}
	}
}

// isCredentialFailure reports whether a failed privileged command was
// rejected for a missing interactive credential rather than a mount
// problem. sudo writes its password prompt error to stderr.
func isCredentialFailure(err error) bool {
	text := err.Error()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		text = string(exitErr.Stderr)
	}
	return strings.Contains(strings.ToLower(text), "password")
}
