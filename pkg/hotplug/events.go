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

// Package hotplug watches kernel block-device events and drives the
// player mount lifecycle from them.
package hotplug

import "regexp"

// Action is what happened to a device.
type Action string

const (
	ActionAttach Action = "attach"
	ActionDetach Action = "detach"
)

// DevType distinguishes whole disks from partitions.
type DevType string

const (
	DevTypeDisk      DevType = "disk"
	DevTypePartition DevType = "partition"
)

// Event is a single kernel block-device notification. Events are
// consumed once, in arrival order, and not retained.
type Event struct {
	Action     Action
	DevType    DevType
	Node       string // e.g. /dev/sda1
	ParentNode string // e.g. /dev/sda, may be empty
	FSType     string
	Serial     string
	VendorID   string
	ProductID  string
}

var partitionNumberRe = regexp.MustCompile(`\d+$`)

// Parent returns the parent disk node for a partition event, falling
// back to stripping the partition number when the event source did not
// report one.
func (e Event) Parent() string {
	if e.ParentNode != "" {
		return e.ParentNode
	}
	return partitionNumberRe.ReplaceAllString(e.Node, "")
}
