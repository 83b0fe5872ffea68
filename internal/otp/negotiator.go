package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"rfqportal/internal/apperr"
	"rfqportal/internal/mailer"
)

// ErrNoCode is returned by SessionStore.PendingCode when nothing is pending.
var ErrNoCode = errors.New("otp: no pending code")

// SessionStore persists at most one pending code per identity.
type SessionStore interface {
	// SaveCode stores code and expiry, replacing any pending code.
	SaveCode(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error
	// PendingCode returns ErrNoCode when no code is pending.
	PendingCode(ctx context.Context, userID uuid.UUID) (code string, expiresAt time.Time, err error)
	// ConsumeCode clears the pending code and stores token in one conditional
	// write, only if code still matches and now is before its expiry. It
	// reports whether the write happened.
	ConsumeCode(ctx context.Context, userID uuid.UUID, code string, now time.Time, token string) (bool, error)
}

// Identity is the subject a code is issued to.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Roles  []string
}

// TokenIssuer mints the access credential handed out on success.
type TokenIssuer interface {
	Issue(identity Identity) (token string, expiresAt time.Time, err error)
}

// Credential is the result of a consumed code.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Config tunes code shape and delivery.
type Config struct {
	Length      int
	TTL         time.Duration
	MailTimeout time.Duration
}

// Negotiator turns a password-verified login into an issued credential via a
// short-lived numeric code.
type Negotiator struct {
	store    SessionStore
	issuer   TokenIssuer
	notifier mailer.Sender
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	generate func(length int) (string, error)
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(n *Negotiator) { n.now = now }
}

// WithGenerator overrides code generation.
func WithGenerator(fn func(length int) (string, error)) Option {
	return func(n *Negotiator) { n.generate = fn }
}

// NewNegotiator wires a Negotiator. Zero config values take the defaults of
// six digits, five minutes and a ten second mail timeout.
func NewNegotiator(store SessionStore, issuer TokenIssuer, notifier mailer.Sender, cfg Config, logger *slog.Logger, opts ...Option) *Negotiator {
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MailTimeout <= 0 {
		cfg.MailTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &Negotiator{
		store:    store,
		issuer:   issuer,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		generate: GenerateCode,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Begin issues a fresh code for identity, overwriting any pending one, and
// sends it by mail. Delivery failures are logged and do not fail Begin.
func (n *Negotiator) Begin(ctx context.Context, identity Identity) (time.Time, error) {
	code, err := n.generate(n.cfg.Length)
	if err != nil {
		return time.Time{}, fmt.Errorf("generate otp: %w", err)
	}
	expiresAt := n.now().Add(n.cfg.TTL)
	if err := n.store.SaveCode(ctx, identity.UserID, code, expiresAt); err != nil {
		return time.Time{}, fmt.Errorf("store otp: %w", err)
	}

	n.deliver(ctx, identity, code)
	return expiresAt, nil
}

func (n *Negotiator) deliver(ctx context.Context, identity Identity, code string) {
	if n.notifier == nil {
		n.logger.Warn("no mail sender configured, otp not delivered", slog.String("user_id", identity.UserID.String()))
		return
	}
	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.cfg.MailTimeout)
	defer cancel()

	msg := mailer.OTPMessage(identity.Email, identity.Name, code, n.cfg.TTL)
	if err := n.notifier.Send(mailCtx, msg); err != nil {
		n.logger.Error("otp mail delivery failed",
			slog.String("user_id", identity.UserID.String()), slog.Any("error", err))
	}
}

// Verify consumes the pending code. It fails with NoPendingSession when no
// code is pending, and with InvalidOrExpiredCode on mismatch, expiry or a
// lost race. Failed attempts leave the pending code untouched.
func (n *Negotiator) Verify(ctx context.Context, identity Identity, submitted string) (*Credential, error) {
	code, expiresAt, err := n.store.PendingCode(ctx, identity.UserID)
	if errors.Is(err, ErrNoCode) {
		return nil, apperr.New(apperr.KindNoPendingSession, "no pending verification, please log in again")
	}
	if err != nil {
		return nil, fmt.Errorf("load otp: %w", err)
	}

	now := n.now()
	if submitted != code || !now.Before(expiresAt) {
		return nil, apperr.New(apperr.KindInvalidOrExpiredCode, "invalid or expired OTP")
	}

	token, tokenExpiry, err := n.issuer.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("issue credential: %w", err)
	}

	ok, err := n.store.ConsumeCode(ctx, identity.UserID, submitted, now, token)
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindInvalidOrExpiredCode, "invalid or expired OTP")
	}
	return &Credential{Token: token, ExpiresAt: tokenExpiry}, nil
}

// GenerateCode returns a uniformly random numeric code of the given length,
// zero padded.
func GenerateCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
