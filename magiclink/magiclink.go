// SPDX-License-Identifier: LGPL-3.0-or-later

// Package magiclink implements the magic-link authenticator: issuing a
// single-use login token bound to an email-derived user_id and a
// freshly-generated session keypair, and redeeming it into an access
// token, refresh cookie, and sealed per-user private-key context.
package magiclink

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/veilmark/corevault/codec"
	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/crypto"
	"github.com/veilmark/corevault/crypto/keys"
	"github.com/veilmark/corevault/e2ee"
	"github.com/veilmark/corevault/envelope"
	"github.com/veilmark/corevault/identity"
	"github.com/veilmark/corevault/internal/metrics"
	"github.com/veilmark/corevault/pkg/storage"
	"github.com/veilmark/corevault/token"
)

// IssuePayload is the signed payload of a login-issuance request.
type IssuePayload struct {
	Email      string `json:"email"`
	EmailLang  string `json:"email_lang"`
	Next       string `json:"next"`
	Ed25519Pub string `json:"ed25519_pub"`
	X25519Pub  string `json:"x25519_pub"`
	UIHost     string `json:"ui_host"`
}

// IssueResult is the decoded shape of a successful issuance response.
type IssueResult struct {
	Status       string `json:"status"`
	ServerPubKey string `json:"server_pub_key"`
}

// RedeemPayload is the signed payload of a redemption request.
type RedeemPayload struct {
	MagicLink string `json:"magiclink"`
}

// RedeemResult is the decoded shape of a successful redemption response.
type RedeemResult struct {
	AccessToken             string `json:"access_token"`
	UserID                  string `json:"user_id"`
	ExpiresAt               int64  `json:"expires_at"`
	ServerPubKey            string `json:"server_pub_key"`
	ServerX25519PubKey      string `json:"server_x25519_pub_key"`
	EncryptedPrivkeyContext string `json:"encrypted_privkey_context"`
}

// Config bundles the secrets and TTLs the magic-link authenticator needs.
type Config struct {
	KUser    []byte
	KMagic   []byte
	MagicTTL time.Duration

	TokenConfig token.Config
}

// Service implements magic-link issuance and redemption.
type Service struct {
	cfg        Config
	store      storage.MagicLinkStore
	mailer     Mailer
	serverEd   ed25519.PrivateKey
	serverX    *keys.X25519KeyPair
	issueGroup singleflight.Group
}

// NewService constructs a magic-link authenticator bound to the
// server's long-term signing and ECDH keys.
func NewService(cfg Config, store storage.MagicLinkStore, mailer Mailer, serverEd ed25519.PrivateKey, serverX *keys.X25519KeyPair) *Service {
	return &Service{cfg: cfg, store: store, mailer: mailer, serverEd: serverEd, serverX: serverX}
}

// failGeneric is the single error every redemption failure mode maps
// to -- bad token, wrong signer, expired, already consumed, and replay
// must all be indistinguishable to the caller.
func failGeneric() error {
	return coreerr.New(coreerr.Unauthorized, "magiclink: invalid or expired magic link")
}

// Issue handles a login-issuance request: req is self-signed by the
// ephemeral Ed25519 key published in its own payload.
func (s *Service) Issue(ctx context.Context, req *envelope.SignedRequest) (*envelope.SignedResponse, error) {
	rawUnverified, err := codec.Base64URLDecode(req.Payload)
	if err != nil {
		return nil, coreerr.New(coreerr.BadEnvelope, "magiclink: malformed payload encoding")
	}
	pub, err := envelope.AnonymousSigner(rawUnverified)
	if err != nil {
		return nil, err
	}
	canon, err := envelope.VerifyRequest(req, pub)
	if err != nil {
		return nil, err
	}

	var payload IssuePayload
	if err := json.Unmarshal(canon, &payload); err != nil {
		return nil, coreerr.New(coreerr.BadEnvelope, "magiclink: malformed issue payload")
	}
	if err := validateIssuePayload(&payload); err != nil {
		return nil, err
	}

	email := identity.NormalizeEmail(payload.Email)
	userID := codec.Base58Encode(identity.UserID(s.cfg.KUser, email))

	if _, err, _ := s.issueGroup.Do(email, func() (any, error) {
		return s.issueLink(ctx, userID, email, &payload)
	}); err != nil {
		return nil, err
	}

	result := IssueResult{Status: "OK", ServerPubKey: codec.Base64URLEncode(s.serverEd.Public().(ed25519.PublicKey))}
	return envelope.BuildResponse(result, s.serverEd)
}

func (s *Service) issueLink(ctx context.Context, userID, email string, payload *IssuePayload) (*storage.MagicLink, error) {
	now := time.Now()
	magicID, err := crypto.RandomBytes(32)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "magiclink: generate magic id", err)
	}
	tok := codec.Base58Encode(crypto.HMACSHA256(s.cfg.KMagic, magicID))

	link := &storage.MagicLink{
		Token:         tok,
		UserID:        userID,
		SessionPubKey: payload.Ed25519Pub,
		SessionX25519: payload.X25519Pub,
		UIHost:        payload.UIHost,
		NextPath:      payload.Next,
		EmailLang:     payload.EmailLang,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.MagicTTL),
	}
	if err := s.store.Create(ctx, link); err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "magiclink: store link", err)
	}
	metrics.MagicLinksIssued.Inc()

	mailLink := fmtLink(payload.UIHost, tok)
	if err := s.mailer.Send(ctx, email, mailLink, payload.EmailLang); err != nil {
		metrics.MailerDispatches.WithLabelValues("failed").Inc()
	}
	return link, nil
}

// RedeemOutcome bundles the signed response body with the refresh
// cookie value the HTTP layer (out of scope here) must set -- the
// refresh cookie rides outside the signed payload per section 6.
type RedeemOutcome struct {
	Response              *envelope.SignedResponse
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// Redeem handles a magic-link redemption: req is self-signed by the
// same Ed25519 key that was published at issuance.
func (s *Service) Redeem(ctx context.Context, req *envelope.SignedRequest, now time.Time) (*RedeemOutcome, error) {
	rawUnverified, err := codec.Base64URLDecode(req.Payload)
	if err != nil {
		metrics.MagicLinksRedeemed.WithLabelValues("bad_envelope").Inc()
		return nil, failGeneric()
	}
	var shape RedeemPayload
	if err := json.Unmarshal(rawUnverified, &shape); err != nil || shape.MagicLink == "" {
		metrics.MagicLinksRedeemed.WithLabelValues("bad_envelope").Inc()
		return nil, failGeneric()
	}

	link, err := s.store.Get(ctx, shape.MagicLink)
	if err != nil {
		metrics.MagicLinksRedeemed.WithLabelValues("not_found").Inc()
		return nil, failGeneric()
	}
	if link.ConsumedAt != nil {
		metrics.MagicLinksRedeemed.WithLabelValues("consumed").Inc()
		return nil, failGeneric()
	}
	if !now.Before(link.ExpiresAt) {
		metrics.MagicLinksRedeemed.WithLabelValues("expired").Inc()
		return nil, failGeneric()
	}

	boundPub, err := codec.Base64URLDecode(link.SessionPubKey)
	if err != nil || len(boundPub) != ed25519.PublicKeySize {
		metrics.MagicLinksRedeemed.WithLabelValues("bad_signer").Inc()
		return nil, failGeneric()
	}
	if _, err := envelope.VerifyRequest(req, ed25519.PublicKey(boundPub)); err != nil {
		metrics.MagicLinksRedeemed.WithLabelValues("bad_signer").Inc()
		return nil, failGeneric()
	}

	consumed, err := s.store.Consume(ctx, shape.MagicLink)
	if err != nil {
		metrics.MagicLinksRedeemed.WithLabelValues("consumed").Inc()
		return nil, failGeneric()
	}

	clientX25519, err := codec.Base64URLDecode(consumed.SessionX25519)
	if err != nil {
		metrics.MagicLinksRedeemed.WithLabelValues("bad_signer").Inc()
		return nil, failGeneric()
	}

	userIDBytes, err := codec.Base58Decode(consumed.UserID)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "magiclink: decode user id", err)
	}
	privContext := crypto.DerivePrivateKeyContext(s.cfg.KUser, userIDBytes)
	sealedContext, err := e2ee.SealBlob(s.serverX, clientX25519, privContext)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "magiclink: seal private key context", err)
	}

	access, accessExp, err := token.MintAccessToken(s.cfg.TokenConfig.KJWT, boundPub, consumed.UserID, s.cfg.TokenConfig.AccessTTL, now)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := token.MintRefreshCookie(s.cfg.TokenConfig.KRefresh, boundPub, consumed.UserID, s.cfg.TokenConfig.RefreshTTL, now)
	if err != nil {
		return nil, err
	}
	metrics.TokensMinted.WithLabelValues("access").Inc()
	metrics.TokensMinted.WithLabelValues("refresh").Inc()
	metrics.MagicLinksRedeemed.WithLabelValues("ok").Inc()

	result := RedeemResult{
		AccessToken:             access,
		UserID:                  consumed.UserID,
		ExpiresAt:               accessExp.Unix(),
		ServerPubKey:            codec.Base64URLEncode(s.serverEd.Public().(ed25519.PublicKey)),
		ServerX25519PubKey:      codec.Base64URLEncode(s.serverX.PublicKeyBytes()),
		EncryptedPrivkeyContext: codec.Base64URLEncode(sealedContext),
	}
	resp, err := envelope.BuildResponse(result, s.serverEd)
	if err != nil {
		return nil, err
	}
	return &RedeemOutcome{Response: resp, RefreshToken: refresh, RefreshTokenExpiresAt: refreshExp}, nil
}

func validateIssuePayload(p *IssuePayload) error {
	if p.Email == "" || p.UIHost == "" {
		return coreerr.New(coreerr.ValidationFailed, "magiclink: email and ui_host are required")
	}
	pub, err := codec.Base64URLDecode(p.Ed25519Pub)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return coreerr.New(coreerr.ValidationFailed, "magiclink: malformed ed25519_pub")
	}
	x25519Pub, err := codec.Base64URLDecode(p.X25519Pub)
	if err != nil || len(x25519Pub) != 32 {
		return coreerr.New(coreerr.ValidationFailed, "magiclink: malformed x25519_pub")
	}
	return nil
}
