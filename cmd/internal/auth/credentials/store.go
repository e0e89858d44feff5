package credentials

import "time"

// Store is the client's credential state.
//
// The zero refresh instant means "expired": a fresh Store renews both tokens
// on first use.
type Store struct {
	accessKey    string
	refreshToken string
	accessToken  string

	accessRefreshAt  time.Time
	refreshRefreshAt time.Time
}

// NewStore returns a Store seeded with the application's access key.
func NewStore(accessKey string) *Store {
	return &Store{
		accessKey:        accessKey,
		accessRefreshAt:  time.Unix(0, 0),
		refreshRefreshAt: time.Unix(0, 0),
	}
}

// AccessKey is the application's long-lived use-case key.
func (s *Store) AccessKey() string { return s.accessKey }

// RefreshToken is the current session refresh token, or "" before one is minted.
func (s *Store) RefreshToken() string { return s.refreshToken }

// AccessToken is the current bearer for session calls, or "" before one is minted.
func (s *Store) AccessToken() string { return s.accessToken }

// AccessTokenRefreshAt is the instant after which the access token must be renewed.
func (s *Store) AccessTokenRefreshAt() time.Time { return s.accessRefreshAt }

// RefreshTokenRefreshAt is the instant after which the refresh token must be renewed.
func (s *Store) RefreshTokenRefreshAt() time.Time { return s.refreshRefreshAt }

// AccessTokenExpired reports whether now is at or past the access token's refresh instant.
func (s *Store) AccessTokenExpired(now time.Time) bool {
	return !now.Before(s.accessRefreshAt)
}

// RefreshTokenExpired reports whether now is at or past the refresh token's refresh instant.
func (s *Store) RefreshTokenExpired(now time.Time) bool {
	return !now.Before(s.refreshRefreshAt)
}

func (s *Store) setAccessToken(tok string, refreshAt time.Time) {
	s.accessToken = tok
	s.accessRefreshAt = refreshAt
}

func (s *Store) setRefreshToken(tok string, refreshAt time.Time) {
	s.refreshToken = tok
	s.refreshRefreshAt = refreshAt
}
