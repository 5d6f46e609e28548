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

// Checksum returns the frame checksum for p: the two's-complement
// negation of the byte sum, truncated to 8 bits.
func Checksum(p []byte) byte {
	var sum byte
	for _, b := range p {
		sum += b
	}
	return -sum
}
