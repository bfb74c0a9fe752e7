package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/victornm/botm/internal/errors"
)

const (
	// CookieName is the cookie carrying the session token.
	CookieName = "botm_session"

	// DefaultTTL applies when Config.TTL is zero.
	DefaultTTL = 7 * 24 * time.Hour
	issuer     = "botm"
)

type Config struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// Service issues and verifies session tokens. A token is an HS256 JWT whose subject
// is the member ID.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(c Config) *Service {
	ttl := c.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		secret: c.Secret,
		ttl:    ttl,
		now:    now,
	}
}

func (s *Service) TTL() time.Duration { return s.ttl }

// Session is the verified content of a token.
type Session struct {
	MemberID   string
	ExpireTime time.Time
}

// Issue signs a new token for the member.
func (s *Service) Issue(memberID string) (string, *Session, error) {
	now := s.now()
	ss := &Session{
		MemberID:   memberID,
		ExpireTime: now.Add(s.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   memberID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(ss.ExpireTime),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}

	return signed, ss, nil
}

// Parse verifies the token and returns its session. Any invalid, expired or foreign
// token fails with CodeUnauthenticated.
func (s *Service) Parse(token string) (*Session, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid session"),
			errors.WithCause(err),
		)
	}

	if claims.Subject == "" {
		return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("invalid session"))
	}

	return &Session{
		MemberID:   claims.Subject,
		ExpireTime: claims.ExpiresAt.Time,
	}, nil
}
