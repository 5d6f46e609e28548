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

// Package aap implements the framed serial command protocol used to
// drive playback on a docked player, in the style of the Apple
// Accessory Protocol.
package aap

import "time"

// Command opcodes
const (
	CmdPlayPause     byte = 0x00 // toggle playback, no response
	CmdNextTrack     byte = 0x01 // skip forward, no response
	CmdPreviousTrack byte = 0x02 // skip back, no response
	CmdSetVolume     byte = 0x04 // CmdSetVolume,<level 0-100>
	CmdPlayTrack     byte = 0x06 // CmdPlayTrack,<id hi>,<id lo>
	CmdTrackInfo     byte = 0x12 // replies with one tab-delimited line
	CmdStatus        byte = 0x13 // replies with one comma-delimited line
)

// Framing parameters
const (
	PreambleFirst  byte = 0xFF
	PreambleSecond byte = 0x55

	// Responses are newline-terminated text lines, not checksummed frames.
	LineTerminator byte = '\n'

	DefaultReadTimeout = 1 * time.Second
)
