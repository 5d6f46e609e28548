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

// Controller maps high-level playback commands to frames on the serial
// link. It is safe for concurrent use; the link serializes wire access.
type Controller struct {
	link *Link
}

// NewController creates a playback controller on the given link.
func NewController(link *Link) *Controller {
	return &Controller{link: link}
}

// PlayPause toggles playback. No response is expected.
func (c *Controller) PlayPause() error {
	return c.link.Send(EncodeFrame(CmdPlayPause))
}

// NextTrack skips to the next track.
func (c *Controller) NextTrack() error {
	return c.link.Send(EncodeFrame(CmdNextTrack))
}

// PreviousTrack goes back to the previous track.
func (c *Controller) PreviousTrack() error {
	return c.link.Send(EncodeFrame(CmdPreviousTrack))
}

// SetVolume sets the playback volume, clamping level to 0-100.
func (c *Controller) SetVolume(level int) error {
	if level < 0 {
		level = 0
	} else if level > 100 {
		level = 100
	}
	return c.link.Send(EncodeFrame(CmdSetVolume, byte(level)))
}

// PlayTrackByID starts playback of a track by its database identifier,
// sent as two big-endian parameter bytes.
func (c *Controller) PlayTrackByID(id uint16) error {
	return c.link.Send(EncodeFrame(CmdPlayTrack, byte(id>>8), byte(id)))
}

// CurrentTrackInfo queries the device for the playing track's title,
// artist and album. Fields the device omits are empty strings.
func (c *Controller) CurrentTrackInfo() (TrackInfo, error) {
	line, err := c.link.Exchange(EncodeFrame(CmdTrackInfo))
	if err != nil {
		return TrackInfo{}, err
	}
	return DecodeTrackInfo(line), nil
}

// PlaybackStatus queries the device for its playback state, track
// duration and position.
func (c *Controller) PlaybackStatus() (Status, error) {
	line, err := c.link.Exchange(EncodeFrame(CmdStatus))
	if err != nil {
		return Status{}, err
	}
	return DecodeStatus(line), nil
}

// Close releases the serial port. Commands issued afterwards reopen it.
func (c *Controller) Close() error {
	return c.link.Close()
}
