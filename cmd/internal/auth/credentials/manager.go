package credentials

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/iostack-ai/client-example/cmd/security/token"
)

// Renewer performs the renewal calls against the platform.
//
// Implementations report transport failures to the application before returning them.
type Renewer interface {
	// RenewRefreshToken mints a refresh token using the access key as bearer.
	RenewRefreshToken(ctx context.Context, accessKey string) (string, error)
	// RenewAccessToken mints an access token using the refresh token as bearer.
	RenewAccessToken(ctx context.Context, refreshToken string) (string, error)
}

// Manager owns a Store and keeps its tokens fresh.
//
// Calls are expected to be serialized by the owning client.
type Manager struct {
	store   *Store
	renewer Renewer
	log     *slog.Logger
	now     func() time.Time
}

// NewManager constructs a Manager over store.
func NewManager(store *Store, renewer Renewer, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store:   store,
		renewer: renewer,
		log:     log,
		now:     time.Now,
	}
}

// WithClock overrides the time source (tests).
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// Store returns the read-only credential view.
func (m *Manager) Store() *Store { return m.store }

// EnsureFresh renews whichever tokens have reached their refresh instant.
//
// The refresh token is checked first so that an access-token renewal always uses
// a live refresh token. When both tokens are fresh no call is made.
func (m *Manager) EnsureFresh(ctx context.Context) error {
	if m.store.RefreshTokenExpired(m.now()) {
		if err := m.renewRefreshToken(ctx); err != nil {
			return err
		}
	}

	if m.store.AccessTokenExpired(m.now()) {
		if err := m.renewAccessToken(ctx); err != nil {
			return err
		}
	}

	return nil
}

// RetrieveAccessToken mints a new access token regardless of the current one.
// A session adopted by id holds no refresh token yet, so one is minted first.
func (m *Manager) RetrieveAccessToken(ctx context.Context) error {
	if m.store.RefreshToken() == "" && m.store.RefreshTokenExpired(m.now()) {
		if err := m.renewRefreshToken(ctx); err != nil {
			return err
		}
	}
	return m.renewAccessToken(ctx)
}

// SeedRefreshToken stores a refresh token issued at session establishment.
func (m *Manager) SeedRefreshToken(tok string) error {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ErrEmptyToken
	}
	refreshAt, err := token.RefreshTimeFor(tok, m.now())
	if err != nil {
		return err
	}
	m.store.setRefreshToken(tok, refreshAt)
	m.log.Debug("token.refresh.seeded", "refresh_at", refreshAt)
	return nil
}

func (m *Manager) renewRefreshToken(ctx context.Context) error {
	if m.renewer == nil {
		return ErrNoRenewer
	}

	m.log.Info("token.refresh.renew")

	tok, err := m.renewer.RenewRefreshToken(ctx, m.store.AccessKey())
	if err != nil {
		return err
	}
	return m.SeedRefreshToken(tok)
}

func (m *Manager) renewAccessToken(ctx context.Context) error {
	if m.renewer == nil {
		return ErrNoRenewer
	}

	m.log.Info("token.access.renew")

	tok, err := m.renewer.RenewAccessToken(ctx, m.store.RefreshToken())
	if err != nil {
		return err
	}

	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ErrEmptyToken
	}

	refreshAt, err := token.RefreshTimeFor(tok, m.now())
	if err != nil {
		return err
	}
	m.store.setAccessToken(tok, refreshAt)
	m.log.Debug("token.access.stored", "refresh_at", refreshAt)
	return nil
}
