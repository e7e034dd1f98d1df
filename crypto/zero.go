package crypto

// Zero clears b in place. Every in-memory key, derived subkey,
// shared secret, and plaintext secret body must be zeroed on every
// exit path -- success or error -- before its storage is released.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
