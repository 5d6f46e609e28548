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
	"strconv"
	"strings"
)

// TrackInfo is the decoded reply to CmdTrackInfo. Fields the device did
// not report are empty strings.
type TrackInfo struct {
	Title  string
	Artist string
	Album  string
}

// Status is the decoded reply to CmdStatus. Fields the device did not
// report, or reported unparseably, are "unknown" and zero.
type Status struct {
	State    string
	Duration int
	Position int
}

// EncodeFrame builds an outgoing command frame: the two preamble bytes,
// the payload length, the payload, and the payload checksum. The payload
// is the opcode followed by up to two parameter bytes; the length byte
// counts the payload only, not the whole frame.
func EncodeFrame(opcode byte, params ...byte) []byte {
	payload := make([]byte, 0, 1+len(params))
	payload = append(payload, opcode)
	payload = append(payload, params...)

	frame := make([]byte, 0, len(payload)+4)
	frame = append(frame, PreambleFirst, PreambleSecond, byte(len(payload)))
	frame = append(frame, payload...)
	frame = append(frame, Checksum(payload))
	return frame
}

// DecodeTrackInfo parses a tab-delimited track info line. Short lines
// leave trailing fields empty; decoding never fails.
func DecodeTrackInfo(line []byte) TrackInfo {
	parts := strings.Split(sanitizeLine(line), "\t")

	var info TrackInfo
	if len(parts) > 0 {
		info.Title = parts[0]
	}
	if len(parts) > 1 {
		info.Artist = parts[1]
	}
	if len(parts) > 2 {
		info.Album = parts[2]
	}
	return info
}

// DecodeStatus parses a comma-delimited status line of the form
// "<state>,<duration>,<position>". A missing state decodes as "unknown"
// and non-numeric duration or position as 0; status queries are
// best-effort and must not fail the caller.
func DecodeStatus(line []byte) Status {
	parts := strings.Split(sanitizeLine(line), ",")

	status := Status{State: "unknown"}
	if len(parts) > 0 && parts[0] != "" {
		status.State = parts[0]
	}
	if len(parts) > 1 {
		status.Duration = decodeInt(parts[1])
	}
	if len(parts) > 2 {
		status.Position = decodeInt(parts[2])
	}
	return status
}

// sanitizeLine replaces undecodable bytes with the Unicode replacement
// character rather than failing the whole read.
func sanitizeLine(line []byte) string {
	s := strings.ToValidUTF8(string(line), "�")
	return strings.TrimSpace(s)
}

func decodeInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
