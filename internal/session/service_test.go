package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/botm/internal/errors"
	"github.com/victornm/botm/internal/session"
)

func TestService_IssueAndParse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	s := session.NewService(session.Config{Secret: []byte("s3cret"), TTL: time.Hour, Now: clock})

	token, issued, err := s.Issue("m1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), issued.ExpireTime)

	got, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "m1", got.MemberID)
	assert.True(t, issued.ExpireTime.Equal(got.ExpireTime))
}

func TestService_Parse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		arrange func(t *testing.T) (token string, s *session.Service)
	}{
		"expired token": {
			arrange: func(t *testing.T) (string, *session.Service) {
				issuer := session.NewService(session.Config{Secret: []byte("s3cret"), TTL: time.Hour, Now: func() time.Time { return now }})
				token, _, err := issuer.Issue("m1")
				require.NoError(t, err)

				later := session.NewService(session.Config{Secret: []byte("s3cret"), Now: func() time.Time { return now.Add(2 * time.Hour) }})
				return token, later
			},
		},

		"token signed with another secret": {
			arrange: func(t *testing.T) (string, *session.Service) {
				other := session.NewService(session.Config{Secret: []byte("other"), Now: func() time.Time { return now }})
				token, _, err := other.Issue("m1")
				require.NoError(t, err)

				return token, session.NewService(session.Config{Secret: []byte("s3cret"), Now: func() time.Time { return now }})
			},
		},

		"unsigned token": {
			arrange: func(t *testing.T) (string, *session.Service) {
				token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
					Issuer:    "botm",
					Subject:   "m1",
					ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				}).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)

				return token, session.NewService(session.Config{Secret: []byte("s3cret"), Now: func() time.Time { return now }})
			},
		},

		"garbage": {
			arrange: func(t *testing.T) (string, *session.Service) {
				return "not-a-token", session.NewService(session.Config{Secret: []byte("s3cret")})
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name+" should be rejected", func(t *testing.T) {
			t.Parallel()

			token, s := tt.arrange(t)
			_, err := s.Parse(token)
			assert.True(t, errors.Is(err, errors.CodeUnauthenticated), "got %v", err)
		})
	}
}
