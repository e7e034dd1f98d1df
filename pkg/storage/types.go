// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package storage

import "time"

// MagicLink is a single-use login token bound to a user_id and the
// ed25519 session public key the client will authenticate with once
// the link is redeemed.
type MagicLink struct {
	Token          string     `json:"token"`
	UserID         string     `json:"user_id"`
	SessionPubKey  string     `json:"session_pub_key"`  // base64url ed25519 session public key (System A)
	SessionX25519  string     `json:"session_x25519"`   // base64url x25519 public key, consumed at redemption
	UIHost         string     `json:"ui_host"`
	NextPath       string     `json:"next_path"`
	EmailLang      string     `json:"email_lang"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ConsumedAt     *time.Time `json:"consumed_at,omitempty"`
}

// SharedSecretRow is one side (sender or receiver) of a dual-URL
// ephemeral secret. Both rows share a ReferenceID but are addressed
// and encrypted independently.
type SharedSecretRow struct {
	ReferenceID   string    `json:"reference_id"`
	Role          string    `json:"role"` // "sender" or "receiver"
	URLToken      string    `json:"url_token"`
	SealedPayload string    `json:"sealed_payload"` // base64url hybrid E2EE ciphertext
	PendingReads  int64     `json:"pending_reads"`  // -1 = unlimited, else decremented on read
	OTPHash       string    `json:"otp_hash,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// TrackingRow records read confirmation for a shared secret,
// independent of the receiver's pending_reads budget.
type TrackingRow struct {
	ReferenceID string     `json:"reference_id"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	ReadCount   int64      `json:"read_count"`
	ExpiresAt   time.Time  `json:"expires_at"`
}
