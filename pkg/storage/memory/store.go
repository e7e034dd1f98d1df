// SPDX-License-Identifier: LGPL-3.0-or-later

// Package memory implements pkg/storage.Store over plain
// mutex-guarded maps, grounded on the teacher's in-memory session/nonce
// store pattern (lock, copy-out, check expiry) but re-keyed to this
// module's three entities: magic links, shared-secret rows, and their
// tracking rows.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/veilmark/corevault/pkg/storage"
)

// Store implements storage.Store entirely in process memory. It is
// the default backend for local development and tests; it holds no
// data across process restarts.
type Store struct {
	magicLinks    *magicLinkStore
	sharedSecrets *sharedSecretStore
	tracking      *trackingStore
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		magicLinks:    &magicLinkStore{links: make(map[string]*storage.MagicLink)},
		sharedSecrets: &sharedSecretStore{rows: make(map[string]*storage.SharedSecretRow)},
		tracking:      &trackingStore{rows: make(map[string]*storage.TrackingRow)},
	}
}

func (s *Store) MagicLinks() storage.MagicLinkStore       { return s.magicLinks }
func (s *Store) SharedSecrets() storage.SharedSecretStore { return s.sharedSecrets }
func (s *Store) Tracking() storage.TrackingStore          { return s.tracking }

// Close is a no-op: there is no underlying connection to release.
func (s *Store) Close() error { return nil }

// Ping always succeeds: the backend is this process's own memory.
func (s *Store) Ping(ctx context.Context) error { return nil }

type magicLinkStore struct {
	mu    sync.Mutex
	links map[string]*storage.MagicLink
}

func (m *magicLinkStore) Create(ctx context.Context, link *storage.MagicLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.links[link.Token]; exists {
		return storage.ErrAlreadyExists
	}
	cp := *link
	m.links[link.Token] = &cp
	return nil
}

func (m *magicLinkStore) Get(ctx context.Context, token string) (*storage.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *link
	return &cp, nil
}

// Consume is the single-use gate: it flips ConsumedAt only if the
// link is still present and unconsumed, mirroring the
// "UPDATE ... WHERE consumed_at IS NULL" conditional write the
// postgres backend runs as one statement.
func (m *magicLinkStore) Consume(ctx context.Context, token string) (*storage.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if link.ConsumedAt != nil {
		return nil, storage.ErrConflict
	}
	now := time.Now()
	link.ConsumedAt = &now
	cp := *link
	return &cp, nil
}

func (m *magicLinkStore) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var n int64
	for token, link := range m.links {
		if now.After(link.ExpiresAt) {
			delete(m.links, token)
			n++
		}
	}
	return n, nil
}

type sharedSecretStore struct {
	mu   sync.Mutex
	rows map[string]*storage.SharedSecretRow
}

func (s *sharedSecretStore) Create(ctx context.Context, sender, receiver *storage.SharedSecretRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[sender.URLToken]; exists {
		return storage.ErrAlreadyExists
	}
	if _, exists := s.rows[receiver.URLToken]; exists {
		return storage.ErrAlreadyExists
	}
	senderCp, receiverCp := *sender, *receiver
	s.rows[sender.URLToken] = &senderCp
	s.rows[receiver.URLToken] = &receiverCp
	return nil
}

func (s *sharedSecretStore) GetByToken(ctx context.Context, urlToken string) (*storage.SharedSecretRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[urlToken]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

// ConsumeRead is the receiver read-count decrement: guarded by
// "pending_reads > 0", matching the single conditional UPDATE the
// design requires to avoid a read-count race between concurrent
// retrievals of the same receiver row.
func (s *sharedSecretStore) ConsumeRead(ctx context.Context, urlToken string) (*storage.SharedSecretRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[urlToken]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if row.PendingReads <= 0 {
		return nil, storage.ErrConflict
	}
	row.PendingReads--
	cp := *row
	if row.PendingReads == 0 {
		delete(s.rows, urlToken)
	}
	return &cp, nil
}

func (s *sharedSecretStore) Delete(ctx context.Context, urlToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[urlToken]; !ok {
		return storage.ErrNotFound
	}
	delete(s.rows, urlToken)
	return nil
}

func (s *sharedSecretStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var n int64
	for token, row := range s.rows {
		if now.After(row.ExpiresAt) {
			delete(s.rows, token)
			n++
		}
	}
	return n, nil
}

type trackingStore struct {
	mu   sync.Mutex
	rows map[string]*storage.TrackingRow
}

func (t *trackingStore) EnsureTracking(ctx context.Context, referenceID string, expiresAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[referenceID]; exists {
		return nil
	}
	t.rows[referenceID] = &storage.TrackingRow{ReferenceID: referenceID, ExpiresAt: expiresAt}
	return nil
}

// MarkRead is idempotent by construction: ReadAt is set only the
// first time, mirroring "WHERE read_at IS NULL" in the SQL backend.
func (t *trackingStore) MarkRead(ctx context.Context, referenceID string) (*storage.TrackingRow, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[referenceID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if row.ReadAt == nil {
		now := time.Now()
		row.ReadAt = &now
	}
	row.ReadCount++
	cp := *row
	return &cp, nil
}

func (t *trackingStore) Get(ctx context.Context, referenceID string) (*storage.TrackingRow, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[referenceID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (t *trackingStore) Delete(ctx context.Context, referenceID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[referenceID]; !ok {
		return storage.ErrNotFound
	}
	delete(t.rows, referenceID)
	return nil
}

func (t *trackingStore) DeleteExpired(ctx context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	var n int64
	for id, row := range t.rows {
		if now.After(row.ExpiresAt) {
			delete(t.rows, id)
			n++
		}
	}
	return n, nil
}
