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

package aap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestChecksum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  byte
	}{
		{name: "empty", input: nil, want: 0x00},
		{name: "single zero", input: []byte{0x00}, want: 0x00},
		{name: "single byte", input: []byte{0x01}, want: 0xFF},
		{name: "play pause payload", input: []byte{0x00}, want: 0x00},
		{name: "volume payload", input: []byte{0x04, 0x64}, want: 0x98},
		{name: "wraps past 256", input: []byte{0xFF, 0xFF}, want: 0x02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Checksum(tt.input))
		})
	}
}

func TestChecksumProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		p := rapid.SliceOf(rapid.Byte()).Draw(t, "payload")

		sum := 0
		for _, b := range p {
			sum += int(b)
		}
		want := byte((-sum) & 0xFF)

		assert.Equal(t, want, Checksum(p))
	})
}

func TestChecksumCancelsSum(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		p := rapid.SliceOf(rapid.Byte()).Draw(t, "payload")

		// appending the checksum makes the byte sum zero mod 256
		var sum byte
		for _, b := range append(p, Checksum(p)) {
			sum += b
		}
		assert.Equal(t, byte(0), sum)
	})
}
