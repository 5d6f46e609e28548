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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventParent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		event    Event
		expected string
	}{
		{
			name:     "reported parent wins",
			event:    Event{Node: "/dev/sda2", ParentNode: "/dev/sda"},
			expected: "/dev/sda",
		},
		{
			name:     "fallback strips partition number",
			event:    Event{Node: "/dev/sdb1"},
			expected: "/dev/sdb",
		},
		{
			name:     "fallback strips multi-digit partition number",
			event:    Event{Node: "/dev/sda12"},
			expected: "/dev/sda",
		},
		{
			name:     "disk node passes through",
			event:    Event{Node: "/dev/sda"},
			expected: "/dev/sda",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.event.Parent())
		})
	}
}
