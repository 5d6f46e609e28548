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

// Package blockdev locates the player's data partition on an attached
// block device.
package blockdev

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PodDockProject/poddock-core/pkg/helpers/command"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	// Partitions can take a moment to appear after a hotplug attach, so
	// resolution polls briefly before reporting not-found.
	DefaultWaitTimeout  = 5 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
)

// Partition is a filesystem-formatted candidate found under a parent
// block device.
type Partition struct {
	Node      string
	FSType    string
	SizeBytes int64
}

// Resolver finds the FAT data partition of an attached player. It shells
// out to lsblk through an injected executor so the selection logic is
// testable without real block devices.
type Resolver struct {
	exec         command.Executor
	clock        clockwork.Clock
	fs           afero.Fs
	waitTimeout  time.Duration
	pollInterval time.Duration
}

// Option adjusts resolver behavior, mostly for tests.
type Option func(*Resolver)

// WithClock replaces the wall clock used for retry pacing.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Resolver) { r.clock = clock }
}

// WithFilesystem replaces the filesystem used for device node checks.
func WithFilesystem(fs afero.Fs) Option {
	return func(r *Resolver) { r.fs = fs }
}

// WithWaitTimeout bounds how long Resolve and WaitForDevice retry.
func WithWaitTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.waitTimeout = d }
}

// NewResolver creates a resolver using the real clock and filesystem.
func NewResolver(exec command.Executor, opts ...Option) *Resolver {
	r := &Resolver{
		exec:         exec,
		clock:        clockwork.NewRealClock(),
		fs:           afero.NewOsFs(),
		waitTimeout:  DefaultWaitTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the data partition beneath parent: the largest child
// formatted as VFAT/FAT, first-seen order breaking size ties. A missing
// partition is a normal condition reported as ok=false, retried
// internally with a bounded poll before giving up.
func (r *Resolver) Resolve(ctx context.Context, parent string) (Partition, bool, error) {
	deadline := r.clock.Now().Add(r.waitTimeout)

	var lastErr error
	for {
		part, ok, err := r.scan(ctx, parent)
		if err == nil && ok {
			log.Debug().Msgf("resolved data partition %s (%d bytes)", part.Node, part.SizeBytes)
			return part, true, nil
		}
		lastErr = err

		if !r.clock.Now().Before(deadline) {
			return Partition{}, false, lastErr
		}
		select {
		case <-ctx.Done():
			return Partition{}, false, ctx.Err()
		case <-r.clock.After(r.pollInterval):
		}
	}
}

// WaitForDevice polls until the device node exists or the bounded wait
// expires. Returns true when the node is present.
func (r *Resolver) WaitForDevice(ctx context.Context, node string) bool {
	deadline := r.clock.Now().Add(r.waitTimeout)
	for {
		if exists, _ := afero.Exists(r.fs, node); exists {
			return true
		}
		if !r.clock.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-r.clock.After(r.pollInterval):
		}
	}
}

type lsblkJSON struct {
	Blockdevices []lsblkDevice `json:"blockdevices"`
}

type lsblkDevice struct {
	Size     any           `json:"size"`
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Type     string        `json:"type"`
	FSType   string        `json:"fstype"`
	Children []lsblkDevice `json:"children"`
}

// scan runs lsblk once and picks the best FAT candidate.
func (r *Resolver) scan(ctx context.Context, parent string) (Partition, bool, error) {
	out, err := r.exec.Output(ctx,
		"lsblk", "--json", "-b", "-o", "NAME,PATH,FSTYPE,SIZE,TYPE", parent)
	if err != nil {
		return Partition{}, false, fmt.Errorf("lsblk %s failed: %w", parent, err)
	}

	var tree lsblkJSON
	if err := json.Unmarshal(out, &tree); err != nil {
		return Partition{}, false, fmt.Errorf("failed to parse lsblk output: %w", err)
	}

	var best Partition
	found := false
	var walk func(d lsblkDevice)
	walk = func(d lsblkDevice) {
		if d.Type == "part" && IsFATType(d.FSType) {
			p := Partition{
				Node:      d.Path,
				FSType:    d.FSType,
				SizeBytes: parseSizeToBytes(d.Size),
			}
			if p.Node == "" {
				p.Node = "/dev/" + d.Name
			}
			// strictly larger wins so first-seen order breaks ties
			if !found || p.SizeBytes > best.SizeBytes {
				best = p
				found = true
			}
		}
		for _, c := range d.Children {
			walk(c)
		}
	}
	for _, d := range tree.Blockdevices {
		walk(d)
	}

	return best, found, nil
}

// IsFATType reports whether an fstype names the FAT family the player
// exposes its data partition as.
func IsFATType(fstype string) bool {
	switch strings.ToLower(fstype) {
	case "vfat", "fat", "fat16", "fat32":
		return true
	default:
		return false
	}
}

func parseSizeToBytes(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
