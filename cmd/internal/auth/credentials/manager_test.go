package credentials

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iostack-ai/client-example/cmd/security/token"
)

type fakeRenewer struct {
	refreshCalls int
	accessCalls  int

	gotAccessKey    string
	gotRefreshToken string

	refreshToken string
	accessToken  string

	refreshErr error
	accessErr  error

	order []string
}

func (f *fakeRenewer) RenewRefreshToken(_ context.Context, accessKey string) (string, error) {
	f.refreshCalls++
	f.order = append(f.order, "refresh")
	f.gotAccessKey = accessKey
	return f.refreshToken, f.refreshErr
}

func (f *fakeRenewer) RenewAccessToken(_ context.Context, refreshToken string) (string, error) {
	f.accessCalls++
	f.order = append(f.order, "access")
	f.gotRefreshToken = refreshToken
	return f.accessToken, f.accessErr
}

func (f *fakeRenewer) reset() {
	f.refreshCalls, f.accessCalls = 0, 0
	f.order = nil
}

func mintExp(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newTestManager(t *testing.T, r Renewer, now time.Time) *Manager {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(NewStore("K"), r, log).WithClock(func() time.Time { return now })
}

func TestStore_DefaultsExpired(t *testing.T) {
	t.Parallel()

	s := NewStore("K")
	now := time.Now()
	if !s.AccessTokenExpired(now) || !s.RefreshTokenExpired(now) {
		t.Fatalf("fresh store must report both tokens expired")
	}
	if s.AccessKey() != "K" || s.AccessToken() != "" || s.RefreshToken() != "" {
		t.Fatalf("unexpected initial state: %+v", s)
	}
}

func TestStore_ExpiredAtExactInstant(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore("K")
	s.setAccessToken("a", now)
	if !s.AccessTokenExpired(now) {
		t.Fatalf("now == refresh instant must be expired")
	}
	if s.AccessTokenExpired(now.Add(-time.Millisecond)) {
		t.Fatalf("before refresh instant must be valid")
	}
}

func TestEnsureFresh_NoCallsWhenBothFresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &fakeRenewer{accessToken: mintExp(t, now.Add(time.Hour))}
	m := newTestManager(t, r, now)

	if err := m.SeedRefreshToken(mintExp(t, now.Add(24*time.Hour))); err != nil {
		t.Fatalf("SeedRefreshToken: %v", err)
	}
	if err := m.RetrieveAccessToken(context.Background()); err != nil {
		t.Fatalf("RetrieveAccessToken: %v", err)
	}
	r.reset()

	if err := m.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if r.refreshCalls != 0 || r.accessCalls != 0 {
		t.Fatalf("expected zero calls, got refresh=%d access=%d", r.refreshCalls, r.accessCalls)
	}
}

func TestEnsureFresh_OnlyRefreshTokenExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &fakeRenewer{accessToken: mintExp(t, now.Add(time.Hour))}
	m := newTestManager(t, r, now)

	if err := m.SeedRefreshToken(mintExp(t, now.Add(-10*time.Second))); err != nil {
		t.Fatalf("SeedRefreshToken: %v", err)
	}
	if err := m.RetrieveAccessToken(context.Background()); err != nil {
		t.Fatalf("RetrieveAccessToken: %v", err)
	}
	r.reset()

	accessAt := m.Store().AccessTokenRefreshAt()
	r.refreshToken = mintExp(t, now.Add(100*time.Second))

	if err := m.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if r.refreshCalls != 1 || r.accessCalls != 0 {
		t.Fatalf("expected exactly one refresh call, got refresh=%d access=%d", r.refreshCalls, r.accessCalls)
	}
	if r.gotAccessKey != "K" {
		t.Fatalf("refresh renewal bearer=%q want access key", r.gotAccessKey)
	}
	if got := m.Store().RefreshTokenRefreshAt(); !got.Equal(now.Add(70 * time.Second)) {
		t.Fatalf("refresh token refresh time=%v want now+70s", got)
	}
	if got := m.Store().AccessTokenRefreshAt(); !got.Equal(accessAt) {
		t.Fatalf("access token refresh time changed: %v -> %v", accessAt, got)
	}
}

func TestEnsureFresh_BothExpiredRenewsInOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	newRefresh := mintExp(t, now.Add(time.Hour))
	r := &fakeRenewer{
		refreshToken: newRefresh,
		accessToken:  mintExp(t, now.Add(100*time.Second)),
	}
	m := newTestManager(t, r, now)

	if err := m.EnsureFresh(context.Background()); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if len(r.order) != 2 || r.order[0] != "refresh" || r.order[1] != "access" {
		t.Fatalf("call order=%v want [refresh access]", r.order)
	}
	if r.gotRefreshToken != newRefresh {
		t.Fatalf("access renewal must use the just-renewed refresh token")
	}
	if got := m.Store().AccessTokenRefreshAt(); !got.Equal(now.Add(70 * time.Second)) {
		t.Fatalf("access refresh time=%v want now+70s", got)
	}
	if m.Store().AccessToken() != r.accessToken || m.Store().RefreshToken() != newRefresh {
		t.Fatalf("tokens not stored")
	}
}

func TestEnsureFresh_AccessTokenMissingExpIsFatal(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "s"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	r := &fakeRenewer{refreshToken: mintExp(t, now.Add(time.Hour)), accessToken: noExp}
	m := newTestManager(t, r, now)

	err = m.EnsureFresh(context.Background())
	if !errors.Is(err, token.ErrMissingExpiry) {
		t.Fatalf("expected ErrMissingExpiry, got %v", err)
	}
	if m.Store().AccessToken() != "" {
		t.Fatalf("malformed access token must not be stored")
	}
}

func TestEnsureFresh_RenewalErrorStopsAccessRenewal(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	boom := errors.New("boom")
	r := &fakeRenewer{refreshErr: boom}
	m := newTestManager(t, r, now)

	if err := m.EnsureFresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected renewal error, got %v", err)
	}
	if r.accessCalls != 0 {
		t.Fatalf("access renewal must not run after a failed refresh renewal")
	}
}

func TestRetrieveAccessToken_MintsRefreshTokenForAdoptedSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &fakeRenewer{
		refreshToken: mintExp(t, now.Add(time.Hour)),
		accessToken:  mintExp(t, now.Add(time.Hour)),
	}
	m := newTestManager(t, r, now)

	if err := m.RetrieveAccessToken(context.Background()); err != nil {
		t.Fatalf("RetrieveAccessToken: %v", err)
	}
	if r.refreshCalls != 1 || r.accessCalls != 1 {
		t.Fatalf("calls refresh=%d access=%d want 1/1", r.refreshCalls, r.accessCalls)
	}
}

func TestRetrieveAccessToken_AlwaysCallsWhenFresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &fakeRenewer{accessToken: mintExp(t, now.Add(time.Hour))}
	m := newTestManager(t, r, now)

	if err := m.SeedRefreshToken(mintExp(t, now.Add(time.Hour))); err != nil {
		t.Fatalf("SeedRefreshToken: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := m.RetrieveAccessToken(context.Background()); err != nil {
			t.Fatalf("RetrieveAccessToken: %v", err)
		}
	}
	if r.accessCalls != 2 || r.refreshCalls != 0 {
		t.Fatalf("calls refresh=%d access=%d want 0/2", r.refreshCalls, r.accessCalls)
	}
}

func TestSeedRefreshToken_Empty(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &fakeRenewer{}, time.Now())
	if err := m.SeedRefreshToken("  "); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}
