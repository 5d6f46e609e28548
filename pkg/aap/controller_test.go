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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(port *fakePort) *Controller {
	link, _ := newFakeLink(port)
	return NewController(link)
}

func TestControllerSendOnlyCommands(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	c := newTestController(port)

	require.NoError(t, c.PlayPause())
	require.NoError(t, c.NextTrack())
	require.NoError(t, c.PreviousTrack())

	require.Len(t, port.writes, 3)
	assert.Equal(t, EncodeFrame(CmdPlayPause), port.writes[0])
	assert.Equal(t, EncodeFrame(CmdNextTrack), port.writes[1])
	assert.Equal(t, EncodeFrame(CmdPreviousTrack), port.writes[2])
}

func TestControllerSetVolumeClamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		level int
		want  byte
	}{
		{name: "above range", level: 150, want: 100},
		{name: "below range", level: -5, want: 0},
		{name: "in range", level: 42, want: 42},
		{name: "upper bound", level: 100, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			port := &fakePort{}
			c := newTestController(port)

			require.NoError(t, c.SetVolume(tt.level))
			require.Len(t, port.writes, 1)
			assert.Equal(t, EncodeFrame(CmdSetVolume, tt.want), port.writes[0])
		})
	}
}

func TestControllerPlayTrackByID(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	c := newTestController(port)

	require.NoError(t, c.PlayTrackByID(0x1234))
	require.Len(t, port.writes, 1)
	assert.Equal(t, EncodeFrame(CmdPlayTrack, 0x12, 0x34), port.writes[0])
}

func TestControllerCurrentTrackInfo(t *testing.T) {
	t.Parallel()

	port := &fakePort{readData: []byte("After the Gold Rush\tNeil Young\tAfter the Gold Rush\n")}
	c := newTestController(port)

	info, err := c.CurrentTrackInfo()
	require.NoError(t, err)
	assert.Equal(t, "After the Gold Rush", info.Title)
	assert.Equal(t, "Neil Young", info.Artist)
	assert.Equal(t, "After the Gold Rush", info.Album)

	require.Len(t, port.writes, 1)
	assert.Equal(t, EncodeFrame(CmdTrackInfo), port.writes[0])
}

func TestControllerPlaybackStatus(t *testing.T) {
	t.Parallel()

	port := &fakePort{readData: []byte("playing,180,42\n")}
	c := newTestController(port)

	status, err := c.PlaybackStatus()
	require.NoError(t, err)
	assert.Equal(t, Status{State: "playing", Duration: 180, Position: 42}, status)
}

func TestControllerPlaybackStatusTimeout(t *testing.T) {
	t.Parallel()

	// device said nothing before the read timeout: status is unknown,
	// not an error
	port := &fakePort{}
	c := newTestController(port)

	status, err := c.PlaybackStatus()
	require.NoError(t, err)
	assert.Equal(t, Status{State: "unknown"}, status)
}

func TestControllerConcurrentCommandsDoNotInterleave(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	c := newTestController(port)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.PlayPause())
		}()
	}
	wg.Wait()

	frame := EncodeFrame(CmdPlayPause)
	require.Len(t, port.writes, 2)
	assert.Equal(t, frame, port.writes[0])
	assert.Equal(t, frame, port.writes[1])
	assert.Equal(t, append(append([]byte{}, frame...), frame...), port.stream,
		"wire stream must be two whole frames back to back")
}
