// SPDX-License-Identifier: LGPL-3.0-or-later

package magiclink

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmark/corevault/codec"
	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/crypto/keys"
	"github.com/veilmark/corevault/envelope"
	"github.com/veilmark/corevault/pkg/storage"
	"github.com/veilmark/corevault/token"
)

type memStore struct {
	mu    sync.Mutex
	links map[string]*storage.MagicLink
}

func newMemStore() *memStore {
	return &memStore{links: make(map[string]*storage.MagicLink)}
}

func (m *memStore) Create(ctx context.Context, link *storage.MagicLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *link
	m.links[link.Token] = &cp
	return nil
}

func (m *memStore) Get(ctx context.Context, token string) (*storage.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) Consume(ctx context.Context, token string) (*storage.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if l.ConsumedAt != nil {
		return nil, storage.ErrConflict
	}
	now := time.Now()
	l.ConsumedAt = &now
	cp := *l
	return &cp, nil
}

func (m *memStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  int
	links []string
}

func (f *fakeMailer) Send(ctx context.Context, to, link, lang string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	f.links = append(f.links, link)
	return nil
}

func testService(t *testing.T) (*Service, *memStore, *fakeMailer, ed25519.PublicKey) {
	t.Helper()
	store := newMemStore()
	mailer := &fakeMailer{}
	serverPub, serverPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	serverXAny, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	serverX := serverXAny.(*keys.X25519KeyPair)

	cfg := Config{
		KUser:    []byte("k-user-secret"),
		KMagic:   []byte("k-magic-secret"),
		MagicTTL: 15 * time.Minute,
		TokenConfig: token.Config{
			KJWT:       []byte("k-jwt-secret"),
			KRefresh:   []byte("k-refresh-secret"),
			AccessTTL:  60 * time.Second,
			RefreshTTL: 300 * time.Second,
		},
	}
	svc := NewService(cfg, store, mailer, serverPriv, serverX)
	return svc, store, mailer, serverPub
}

func buildIssueRequest(t *testing.T, email string) (*envelope.SignedRequest, ed25519.PrivateKey, *keys.X25519KeyPair) {
	t.Helper()
	sessionPub, sessionPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sessionXAny, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	sessionX := sessionXAny.(*keys.X25519KeyPair)

	payload := IssuePayload{
		Email:      email,
		EmailLang:  "en",
		Next:       "/dashboard",
		Ed25519Pub: codec.Base64URLEncode(sessionPub),
		X25519Pub:  codec.Base64URLEncode(sessionX.PublicKeyBytes()),
		UIHost:     "example.test",
	}
	req, err := envelope.BuildRequest(payload, sessionPriv)
	require.NoError(t, err)
	return req, sessionPriv, sessionX
}

func TestIssueAndRedeemRoundTrip(t *testing.T) {
	svc, store, mailer, serverPub := testService(t)

	req, sessionPriv, sessionX := buildIssueRequest(t, " User@Example.com ")
	resp, err := svc.Issue(context.Background(), req)
	require.NoError(t, err)

	raw, err := envelope.VerifyResponse(resp, serverPub)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"OK"`)
	assert.Equal(t, 1, mailer.sent)
	require.Len(t, mailer.links, 1)

	var tok string
	for k := range store.links {
		tok = k
	}
	require.NotEmpty(t, tok)

	redeemReq, err := envelope.BuildRequest(RedeemPayload{MagicLink: tok}, sessionPriv)
	require.NoError(t, err)

	outcome, err := svc.Redeem(context.Background(), redeemReq, time.Now())
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.NotEmpty(t, outcome.RefreshToken)

	raw, err = envelope.VerifyResponse(outcome.Response, serverPub)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"access_token"`)
	assert.Contains(t, string(raw), `"encrypted_privkey_context"`)

	_, err = svc.Redeem(context.Background(), redeemReq, time.Now())
	require.Error(t, err)
	assert.Equal(t, coreerr.Unauthorized, coreerr.CodeOf(err))
	_ = sessionX
}

func TestRedeemRejectsWrongSigner(t *testing.T) {
	svc, store, _, _ := testService(t)

	req, _, _ := buildIssueRequest(t, "attacker-target@example.com")
	_, err := svc.Issue(context.Background(), req)
	require.NoError(t, err)

	var tok string
	for k := range store.links {
		tok = k
	}

	_, evilPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	redeemReq, err := envelope.BuildRequest(RedeemPayload{MagicLink: tok}, evilPriv)
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), redeemReq, time.Now())
	require.Error(t, err)
	assert.Equal(t, coreerr.Unauthorized, coreerr.CodeOf(err))
}

func TestRedeemUnknownTokenIsGenericFailure(t *testing.T) {
	svc, _, _, _ := testService(t)
	_, sessionPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	redeemReq, err := envelope.BuildRequest(RedeemPayload{MagicLink: "does-not-exist"}, sessionPriv)
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), redeemReq, time.Now())
	require.Error(t, err)
	assert.Equal(t, coreerr.Unauthorized, coreerr.CodeOf(err))
}
