package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const signingKeySize = 64

var (
	ErrMissingToken = errors.New("missing token")
	ErrBadSignature = errors.New("token signature mismatch")
	ErrExpired      = errors.New("token expired")
	ErrMalformed    = errors.New("malformed token")
)

// Claims is the signed token payload. Roles carries the account's granted
// role names; expansion through the hierarchy happens at authorization
// time, never inside the token.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Principal is the verified identity attached to a request. It is built
// from a verified token only and discarded when the request ends.
type Principal struct {
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

// TokenCodec issues and verifies signed, time-bounded credentials. The
// signing key lives only in process memory.
type TokenCodec struct {
	key       []byte
	validity  time.Duration
	hierarchy *Hierarchy
	now       func() time.Time
}

// GenerateKey returns a fresh random HS512 signing key. A server that
// starts with a generated key invalidates all tokens issued before the
// restart.
func GenerateKey() ([]byte, error) {
	key := make([]byte, signingKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}

func NewTokenCodec(key []byte, validity time.Duration, hierarchy *Hierarchy) (*TokenCodec, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("token codec: empty signing key")
	}
	if validity <= 0 {
		return nil, fmt.Errorf("token codec: validity must be positive")
	}
	if hierarchy == nil {
		return nil, fmt.Errorf("token codec: nil role hierarchy")
	}
	return &TokenCodec{key: key, validity: validity, hierarchy: hierarchy, now: time.Now}, nil
}

func (c *TokenCodec) Issue(subject string, roles []string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("issue token: empty subject")
	}

	now := c.now()
	claims := &Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.validity)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(c.key)
}

// Verify checks the signature before trusting any claim, then the expiry,
// then validates the role claims against the known role table. Unknown
// role strings make the token malformed rather than being carried along.
func (c *TokenCodec) Verify(tokenString string) (*Principal, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return c.key, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	for _, role := range claims.Roles {
		if !c.hierarchy.Known(role) {
			return nil, ErrMalformed
		}
	}

	return &Principal{
		Subject:   claims.Subject,
		Roles:     append([]string(nil), claims.Roles...),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// TokenFromHeader extracts the bearer token from an Authorization header
// value.
func TokenFromHeader(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(parts[1]), nil
}
