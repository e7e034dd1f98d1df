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

// Package codec implements the wire-level encodings the signed envelope
// protocol is built on: unpadded base64url (RFC 4648 §5) and base58
// (Bitcoin alphabet), plus deterministic JSON canonicalization.
package codec

import "encoding/base64"

// Base64URLEncode encodes data as unpadded base64url, per RFC 4648 §5.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode decodes base64url, tolerating both padded and
// unpadded input since clients disagree on whether to strip padding.
func Base64URLDecode(s string) ([]byte, error) {
	if enc := base64.RawURLEncoding; true {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return base64.URLEncoding.DecodeString(s)
}
