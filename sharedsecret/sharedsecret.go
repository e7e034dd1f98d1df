// SPDX-License-Identifier: LGPL-3.0-or-later

// Package sharedsecret implements the dual-URL ephemeral secret
// engine: create, retrieve (with optional OTP), confirm-read and delete
// over the sender/receiver row pair that shares a reference_id. Expired
// rows are removed by storage.Sweeper, not by this package.
package sharedsecret

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/veilmark/corevault/codec"
	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/e2ee"
	"github.com/veilmark/corevault/envelope"
	"github.com/veilmark/corevault/identity"
	"github.com/veilmark/corevault/internal/metrics"
	"github.com/veilmark/corevault/pkg/storage"
	"github.com/veilmark/corevault/token"
)

const maxSecretTextBytes = 512

// Mailer delivers a shared-secret notification link. Distinct from
// magiclink.Mailer since this flow carries no email_lang.
type Mailer interface {
	Send(ctx context.Context, to, link string) error
}

// CreatePayload is the signed payload of a create request.
type CreatePayload struct {
	SenderEmail       string `json:"sender_email"`
	ReceiverEmail     string `json:"receiver_email"`
	SecretText        string `json:"secret_text"`
	ExpiresHours      int    `json:"expires_hours"`
	MaxReads          int    `json:"max_reads"`
	RequireOTP        bool   `json:"require_otp"`
	SendCopyToSender  bool   `json:"send_copy_to_sender"`
	UIHost            string `json:"ui_host"`
}

// CreateResult is the decoded shape of a successful create response.
type CreateResult struct {
	URLSender   string `json:"url_sender"`
	URLReceiver string `json:"url_receiver"`
	Reference   string `json:"reference"`
	OTP         string `json:"otp,omitempty"`
}

// RetrieveResult is the decoded shape of a successful retrieve response.
type RetrieveResult struct {
	Role         string `json:"role"`
	PendingReads int64  `json:"pending_reads"`
	SecretText   string `json:"secret_text"`
	Sender       string `json:"sender"`
	Receiver     string `json:"receiver"`
	Reference    string `json:"reference"`
	ExpiresAt    int64  `json:"expires_at"`
}

// ConfirmReadResult is the decoded shape of a successful
// confirm-read response.
type ConfirmReadResult struct {
	Success      bool   `json:"success"`
	PendingReads int64  `json:"pending_reads"`
	Role         string `json:"role"`
}

// record is the plaintext body sealed into SharedSecretRow.SealedPayload.
type record struct {
	Sender      string `json:"sender"`
	Receiver    string `json:"receiver"`
	SecretText  string `json:"secret_text"`
	OTP         string `json:"otp,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	ReferenceID string `json:"reference_id"`
}

// Config bundles the secrets the shared-secret engine needs; the
// server signing key is passed to NewService separately.
type Config struct {
	KUser []byte
	KRow  []byte
}

// Service implements the shared-secret engine.
type Service struct {
	cfg    Config
	rows   storage.SharedSecretStore
	track  storage.TrackingStore
	mailer Mailer
	serverEd ed25519SignerFunc
}

// ed25519SignerFunc signs a response payload; defined as a func type
// so tests can stub it without constructing a full keypair.
type ed25519SignerFunc = func(payload any) (*envelope.SignedResponse, error)

// NewService constructs a shared-secret engine. sign builds the
// outbound SignedResponse (normally envelope.BuildResponse bound to
// the server's Ed25519 key).
func NewService(cfg Config, rows storage.SharedSecretStore, track storage.TrackingStore, mailer Mailer, sign func(payload any) (*envelope.SignedResponse, error)) *Service {
	return &Service{cfg: cfg, rows: rows, track: track, mailer: mailer, serverEd: sign}
}

// Create implements the authenticated create operation. callerUserID
// is the base58 user_id bound to the caller's verified access token.
func (s *Service) Create(ctx context.Context, payload *CreatePayload, callerUserID string, now time.Time) (*envelope.SignedResponse, error) {
	if err := validateCreatePayload(payload); err != nil {
		return nil, err
	}

	senderUserID := codec.Base58Encode(identity.UserID(s.cfg.KUser, payload.SenderEmail))
	receiverUserID := codec.Base58Encode(identity.UserID(s.cfg.KUser, payload.ReceiverEmail))
	if senderUserID != callerUserID {
		return nil, coreerr.New(coreerr.AccessDenied, "sharedsecret: sender_email must belong to the caller")
	}

	referenceID := uuid.New()
	referenceIDBytes := referenceID[:]
	expiresAt := now.Add(time.Duration(payload.ExpiresHours) * time.Hour)

	otp := ""
	if payload.RequireOTP {
		var err error
		otp, err = generateOTP()
		if err != nil {
			return nil, err
		}
	}

	km, err := e2ee.GenerateKeyMaterial()
	if err != nil {
		return nil, err
	}
	defer km.Zero()

	rec := record{
		Sender:      payload.SenderEmail,
		Receiver:    payload.ReceiverEmail,
		SecretText:  payload.SecretText,
		OTP:         otp,
		CreatedAt:   now.Unix(),
		ReferenceID: codec.Base58Encode(referenceIDBytes),
	}
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "sharedsecret: marshal record", err)
	}
	ct, err := e2ee.EncryptBody(km, plaintext)
	if err != nil {
		return nil, err
	}
	sealedPayload := codec.Base64URLEncode(append(append([]byte{}, km[:]...), ct...))

	otpHash := ""
	if payload.RequireOTP {
		otpHash = hashOTP(s.cfg.KRow, otp)
	}

	senderUserIDBytes, err := codec.Base58Decode(senderUserID)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "sharedsecret: decode sender user id", err)
	}
	receiverUserIDBytes, err := codec.Base58Decode(receiverUserID)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "sharedsecret: decode receiver user id", err)
	}

	senderHash, err := sealRowHash(s.cfg.KRow, senderUserIDBytes, referenceIDBytes, expiresAt)
	if err != nil {
		return nil, err
	}
	receiverHash, err := sealRowHash(s.cfg.KRow, receiverUserIDBytes, referenceIDBytes, expiresAt)
	if err != nil {
		return nil, err
	}

	senderRow := &storage.SharedSecretRow{
		ReferenceID:   codec.Base58Encode(referenceIDBytes),
		Role:          "sender",
		URLToken:      senderHash,
		SealedPayload: sealedPayload,
		PendingReads:  -1,
		OTPHash:       otpHash,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}
	receiverRow := &storage.SharedSecretRow{
		ReferenceID:   codec.Base58Encode(referenceIDBytes),
		Role:          "receiver",
		URLToken:      receiverHash,
		SealedPayload: sealedPayload,
		PendingReads:  int64(payload.MaxReads),
		OTPHash:       otpHash,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}
	if err := s.rows.Create(ctx, senderRow, receiverRow); err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "sharedsecret: store rows", err)
	}
	if err := s.track.EnsureTracking(ctx, senderRow.ReferenceID, expiresAt); err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "sharedsecret: store tracking row", err)
	}
	metrics.SharedSecretsCreated.Inc()

	urlSender := fmtSecretURL(payload.UIHost, senderHash)
	urlReceiver := fmtSecretURL(payload.UIHost, receiverHash)
	if err := s.mailer.Send(ctx, payload.ReceiverEmail, urlReceiver); err != nil {
		metrics.MailerDispatches.WithLabelValues("failed").Inc()
	}
	if payload.SendCopyToSender {
		if err := s.mailer.Send(ctx, payload.SenderEmail, urlSender); err != nil {
			metrics.MailerDispatches.WithLabelValues("failed").Inc()
		}
	}

	result := CreateResult{
		URLSender:   urlSender,
		URLReceiver: urlReceiver,
		Reference:   codec.Base58Encode(referenceIDBytes),
		OTP:         otp,
	}
	return s.serverEd(result)
}

func validateCreatePayload(p *CreatePayload) error {
	if len(p.SecretText) > maxSecretTextBytes {
		return coreerr.New(coreerr.ValidationFailed, "sharedsecret: secret_text exceeds 512 bytes")
	}
	if p.ExpiresHours < 1 || p.ExpiresHours > 72 {
		return coreerr.New(coreerr.ValidationFailed, "sharedsecret: expires_hours must be in [1,72]")
	}
	if p.MaxReads < 1 || p.MaxReads > 10 {
		return coreerr.New(coreerr.ValidationFailed, "sharedsecret: max_reads must be in [1,10]")
	}
	if p.SenderEmail == "" || p.ReceiverEmail == "" || p.UIHost == "" {
		return coreerr.New(coreerr.ValidationFailed, "sharedsecret: sender_email, receiver_email, and ui_host are required")
	}
	return nil
}

func fmtSecretURL(uiHost, hash string) string {
	return "https://" + uiHost + "/api/shared-secret/" + hash
}

// accessCheck runs the three-layer access check shared by retrieve,
// confirm-read, and delete: row exists and is unexpired, its embedded
// role_user_id matches the caller, and the signed query authenticates
// under the caller's bound session key.
func (s *Service) accessCheck(ctx context.Context, hash string, claims *token.AccessClaims, queryParams map[string]string, sig string, now time.Time) (*storage.SharedSecretRow, error) {
	row, err := s.rows.GetByToken(ctx, hash)
	if err != nil {
		return nil, coreerr.New(coreerr.AccessDenied, "sharedsecret: no such secret")
	}
	if !now.Before(row.ExpiresAt) {
		return nil, coreerr.New(coreerr.AccessDenied, "sharedsecret: secret expired")
	}

	callerUserID, err := codec.Base58Decode(claims.UserID)
	if err != nil {
		return nil, coreerr.New(coreerr.AccessDenied, "sharedsecret: malformed caller user id")
	}
	referenceIDBytes, err := codec.Base58Decode(row.ReferenceID)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "sharedsecret: decode reference id", err)
	}
	if err := openRowHash(s.cfg.KRow, row.URLToken, callerUserID, referenceIDBytes); err != nil {
		return nil, err
	}

	pub, err := codec.Base64URLDecode(claims.Ed25519SessionPub)
	if err != nil {
		return nil, coreerr.New(coreerr.AccessDenied, "sharedsecret: malformed session key")
	}
	if err := envelope.VerifyQuery(queryParams, sig, pub); err != nil {
		return nil, coreerr.New(coreerr.AccessDenied, "sharedsecret: query signature invalid")
	}
	return row, nil
}

// Retrieve implements both the plain GET and the OTP-bearing POST
// variant: otpInput is empty for the former.
func (s *Service) Retrieve(ctx context.Context, hash string, claims *token.AccessClaims, queryParams map[string]string, sig, otpInput string, now time.Time) (*envelope.SignedResponse, error) {
	row, err := s.accessCheck(ctx, hash, claims, queryParams, sig, now)
	if err != nil {
		metrics.SharedSecretRetrievals.WithLabelValues("unknown", "denied").Inc()
		return nil, err
	}

	if row.OTPHash != "" {
		if otpInput == "" {
			metrics.SharedSecretRetrievals.WithLabelValues(row.Role, "otp_required").Inc()
			return nil, coreerr.New(coreerr.OtpRequired, "sharedsecret: otp required")
		}
		if !verifyOTP(s.cfg.KRow, otpInput, row.OTPHash) {
			metrics.SharedSecretRetrievals.WithLabelValues(row.Role, "otp_mismatch").Inc()
			return nil, coreerr.New(coreerr.OtpMismatch, "sharedsecret: otp mismatch")
		}
	}

	rec, err := s.decryptRecord(row)
	if err != nil {
		return nil, err
	}

	pendingReads := row.PendingReads
	if row.Role == "receiver" && row.PendingReads > 0 {
		consumed, err := s.rows.ConsumeRead(ctx, hash)
		if err != nil {
			metrics.SharedSecretRetrievals.WithLabelValues(row.Role, "denied").Inc()
			return nil, coreerr.New(coreerr.AccessDenied, "sharedsecret: read budget already exhausted")
		}
		pendingReads = consumed.PendingReads
		if pendingReads == 0 {
			metrics.SharedSecretsDeleted.WithLabelValues("reads_exhausted").Inc()
		}
	}

	metrics.SharedSecretRetrievals.WithLabelValues(row.Role, "ok").Inc()
	result := RetrieveResult{
		Role:         row.Role,
		PendingReads: pendingReads,
		SecretText:   rec.SecretText,
		Sender:       rec.Sender,
		Receiver:     rec.Receiver,
		Reference:    row.ReferenceID,
		ExpiresAt:    row.ExpiresAt.Unix(),
	}
	return s.serverEd(result)
}

func (s *Service) decryptRecord(row *storage.SharedSecretRow) (*record, error) {
	raw, err := codec.Base64URLDecode(row.SealedPayload)
	if err != nil || len(raw) < e2ee.KeyMaterialSize {
		return nil, coreerr.New(coreerr.AeadFail, "sharedsecret: malformed sealed payload")
	}
	var km e2ee.KeyMaterial
	copy(km[:], raw[:e2ee.KeyMaterialSize])
	defer km.Zero()
	ct := raw[e2ee.KeyMaterialSize:]

	plaintext, err := e2ee.DecryptBody(km, ct)
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "sharedsecret: unmarshal record", err)
	}
	return &rec, nil
}

// ConfirmRead implements the idempotent read-confirmation operation,
// restricted to the receiver role.
func (s *Service) ConfirmRead(ctx context.Context, hash string, claims *token.AccessClaims, queryParams map[string]string, sig string, now time.Time) (*envelope.SignedResponse, error) {
	row, err := s.accessCheck(ctx, hash, claims, queryParams, sig, now)
	if err != nil {
		return nil, err
	}
	if row.Role != "receiver" {
		return nil, coreerr.New(coreerr.AccessDenied, "sharedsecret: confirm-read is receiver-only")
	}
	if _, err := s.track.MarkRead(ctx, row.ReferenceID); err != nil {
		return nil, coreerr.Wrap(coreerr.Internal, "sharedsecret: mark read", err)
	}
	result := ConfirmReadResult{Success: true, PendingReads: row.PendingReads, Role: row.Role}
	return s.serverEd(result)
}

// Delete implements the explicit delete operation: it removes only
// the caller's own role row.
func (s *Service) Delete(ctx context.Context, hash string, claims *token.AccessClaims, queryParams map[string]string, sig string, now time.Time) error {
	row, err := s.accessCheck(ctx, hash, claims, queryParams, sig, now)
	if err != nil {
		return err
	}
	if row.PendingReads == 0 {
		return coreerr.New(coreerr.AccessDenied, "sharedsecret: secret already fully consumed")
	}
	if err := s.rows.Delete(ctx, hash); err != nil {
		return coreerr.Wrap(coreerr.Internal, "sharedsecret: delete row", err)
	}
	metrics.SharedSecretsDeleted.WithLabelValues("explicit").Inc()
	return nil
}
