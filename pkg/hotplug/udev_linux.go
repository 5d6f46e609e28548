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

//go:build linux && cgo

package hotplug

import (
	"context"
	"errors"
	"fmt"

	"github.com/jochenvg/go-udev"
	"github.com/rs/zerolog/log"
)

// UdevSource streams block-subsystem hotplug events from the kernel
// netlink socket and adapts them to Events.
type UdevSource struct {
	monitor *udev.Monitor
}

// NewUdevSource creates a netlink-backed event source filtered to the
// block subsystem.
func NewUdevSource() (*UdevSource, error) {
	u := udev.Udev{}
	monitor := u.NewMonitorFromNetlink("udev")
	if monitor == nil {
		return nil, errors.New("failed to create udev netlink monitor")
	}
	if err := monitor.FilterAddMatchSubsystem("block"); err != nil {
		return nil, fmt.Errorf("failed to filter udev monitor to block subsystem: %w", err)
	}
	return &UdevSource{monitor: monitor}, nil
}

// Events starts the monitor and returns the adapted event stream. The
// channel closes when ctx is cancelled or the netlink socket fails;
// reconnecting means calling Events again.
func (s *UdevSource) Events(ctx context.Context) (<-chan Event, error) {
	devCh, errCh, err := s.monitor.DeviceChan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start udev monitor: %w", err)
	}

	out := make(chan Event, 10)
	go func() {
		defer close(out)
		for {
			select {
			case dev, ok := <-devCh:
				if !ok {
					return
				}
				if ev, ok := eventFromDevice(dev); ok {
					out <- ev
				}
			case err, ok := <-errCh:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("udev monitor error")
			}
		}
	}()
	return out, nil
}

// eventFromDevice maps a udev block device to an Event. Events that are
// neither add nor remove, or neither disk nor partition, are dropped.
func eventFromDevice(dev *udev.Device) (Event, bool) {
	if dev == nil {
		return Event{}, false
	}

	var action Action
	switch dev.Action() {
	case "add":
		action = ActionAttach
	case "remove":
		action = ActionDetach
	default:
		return Event{}, false
	}

	var devType DevType
	switch dev.Devtype() {
	case "disk":
		devType = DevTypeDisk
	case "partition":
		devType = DevTypePartition
	default:
		return Event{}, false
	}

	ev := Event{
		Action:    action,
		DevType:   devType,
		Node:      dev.Devnode(),
		FSType:    dev.PropertyValue("ID_FS_TYPE"),
		Serial:    dev.PropertyValue("ID_SERIAL_SHORT"),
		VendorID:  dev.PropertyValue("ID_VENDOR_ID"),
		ProductID: dev.PropertyValue("ID_MODEL_ID"),
	}
	if devType == DevTypePartition {
		if parent := dev.Parent(); parent != nil {
			ev.ParentNode = parent.Devnode()
		}
	}
	return ev, true
}
