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
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeFrame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		opcode byte
		params []byte
		want   []byte
	}{
		{
			name:   "play pause",
			opcode: CmdPlayPause,
			want:   []byte{0xFF, 0x55, 0x01, 0x00, 0x00},
		},
		{
			name:   "next track",
			opcode: CmdNextTrack,
			want:   []byte{0xFF, 0x55, 0x01, 0x01, 0xFF},
		},
		{
			name:   "set volume 100",
			opcode: CmdSetVolume,
			params: []byte{0x64},
			want:   []byte{0xFF, 0x55, 0x02, 0x04, 0x64, 0x98},
		},
		{
			name:   "play track id",
			opcode: CmdPlayTrack,
			params: []byte{0x12, 0x34},
			want:   []byte{0xFF, 0x55, 0x03, 0x06, 0x12, 0x34, 0xB4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EncodeFrame(tt.opcode, tt.params...))
		})
	}
}

func TestEncodeFrameProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		opcode := rapid.Byte().Draw(t, "opcode")
		params := rapid.SliceOfN(rapid.Byte(), 0, 2).Draw(t, "params")

		frame := EncodeFrame(opcode, params...)

		require.Len(t, frame, len(params)+5)
		assert.Equal(t, PreambleFirst, frame[0])
		assert.Equal(t, PreambleSecond, frame[1])
		assert.Equal(t, byte(len(params)+1), frame[2], "length counts payload only")
		assert.Equal(t, opcode, frame[3])
		assert.Equal(t, Checksum(frame[3:len(frame)-1]), frame[len(frame)-1])
	})
}

func TestDecodeTrackInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want TrackInfo
	}{
		{
			name: "all fields",
			line: "Harvest Moon\tNeil Young\tHarvest Moon",
			want: TrackInfo{Title: "Harvest Moon", Artist: "Neil Young", Album: "Harvest Moon"},
		},
		{
			name: "missing album",
			line: "Harvest Moon\tNeil Young",
			want: TrackInfo{Title: "Harvest Moon", Artist: "Neil Young"},
		},
		{
			name: "title only",
			line: "Harvest Moon",
			want: TrackInfo{Title: "Harvest Moon"},
		},
		{
			name: "empty line",
			line: "",
			want: TrackInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DecodeTrackInfo([]byte(tt.line)))
		})
	}
}

func TestDecodeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want Status
	}{
		{
			name: "round trip",
			line: "playing,180,42",
			want: Status{State: "playing", Duration: 180, Position: 42},
		},
		{
			name: "non-numeric duration",
			line: "playing,x,42",
			want: Status{State: "playing", Duration: 0, Position: 42},
		},
		{
			name: "state only",
			line: "paused",
			want: Status{State: "paused"},
		},
		{
			name: "empty line",
			line: "",
			want: Status{State: "unknown"},
		},
		{
			name: "trailing newline noise",
			line: "playing,180,42\r",
			want: Status{State: "playing", Duration: 180, Position: 42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DecodeStatus([]byte(tt.line)))
		})
	}
}

func TestDecodeStatusUndecodableBytes(t *testing.T) {
	t.Parallel()

	// invalid UTF-8 in the state field is substituted, not fatal
	line := append([]byte{0xFE, 0xFF}, []byte(",90,10")...)
	status := DecodeStatus(line)

	// consecutive invalid bytes collapse to one replacement rune
	assert.Equal(t, "�", status.State)
	assert.Equal(t, 90, status.Duration)
	assert.Equal(t, 10, status.Position)
}
