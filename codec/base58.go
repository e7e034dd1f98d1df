// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package codec

import "github.com/mr-tron/base58"

// Base58Encode encodes data using the Bitcoin alphabet. Used for the
// detached "&signature=..." suffix on signed query parameters, where
// base64url's '-'/'_' characters would need additional URL escaping.
func Base58Encode(data []byte) string {
	return base58.Encode(data)
}

// Base58Decode decodes Bitcoin-alphabet base58.
func Base58Decode(s string) ([]byte, error) {
	return base58.Decode(s)
}
