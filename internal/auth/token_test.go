package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testCodec(t *testing.T, at time.Time) *TokenCodec {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	codec, err := NewTokenCodec(key, time.Hour, DefaultHierarchy())
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	codec.now = func() time.Time { return at }
	return codec
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := testCodec(t, issued)

	token, err := codec.Issue("alice@example.com", []string{RoleAdmin, RoleUser})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	principal, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if principal.Subject != "alice@example.com" {
		t.Fatalf("unexpected subject %q", principal.Subject)
	}
	if len(principal.Roles) != 2 || principal.Roles[0] != RoleAdmin || principal.Roles[1] != RoleUser {
		t.Fatalf("unexpected roles %v", principal.Roles)
	}
	if !principal.ExpiresAt.Equal(issued.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", principal.ExpiresAt)
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := testCodec(t, issued)

	token, err := codec.Issue("alice@example.com", []string{RoleUser})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	codec.now = func() time.Time { return issued.Add(time.Hour - time.Second) }
	if _, err := codec.Verify(token); err != nil {
		t.Fatalf("token should still be valid just before the window closes: %v", err)
	}

	codec.now = func() time.Time { return issued.Add(time.Hour) }
	if _, err := codec.Verify(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at the window boundary, got %v", err)
	}

	codec.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := codec.Verify(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired past the window, got %v", err)
	}
}

func TestVerifyTamperedClaims(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := testCodec(t, issued)

	token, err := codec.Issue("alice@example.com", []string{RoleUser})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	// Swap the subject while keeping the original signature.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	claims["sub"] = "mallory@example.com"
	forged, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal forged payload: %v", err)
	}
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	if _, err := codec.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for tampered claims, got %v", err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := testCodec(t, issued)

	token, err := codec.Issue("alice@example.com", []string{RoleUser})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	flipped := []byte(token)
	last := len(flipped) - 1
	if flipped[last] == 'A' {
		flipped[last] = 'B'
	} else {
		flipped[last] = 'A'
	}

	_, err = codec.Verify(string(flipped))
	if !errors.Is(err, ErrBadSignature) && !errors.Is(err, ErrMalformed) {
		t.Fatalf("tampered signature must never verify, got %v", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := testCodec(t, issued)
	other := testCodec(t, issued)

	token, err := codec.Issue("alice@example.com", []string{RoleUser})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature under a different key, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	codec := testCodec(t, time.Now())

	if _, err := codec.Verify("not-a-token"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := codec.Verify("   "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestVerifyUnknownRoleClaim(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := testCodec(t, issued)

	// A correctly signed token whose role claim is not in the role table
	// must be rejected rather than carried downstream.
	claims := &Claims{
		Roles: []string{"SUPERUSER"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice@example.com",
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(codec.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := codec.Verify(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for unknown role claim, got %v", err)
	}
}

func TestTokenFromHeader(t *testing.T) {
	if _, err := TokenFromHeader("nope"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if _, err := TokenFromHeader(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if token, err := TokenFromHeader("Bearer abc"); err != nil || token != "abc" {
		t.Fatalf("expected token abc, got %q err %v", token, err)
	}
	if token, err := TokenFromHeader("bearer abc"); err != nil || token != "abc" {
		t.Fatalf("scheme should be case-insensitive, got %q err %v", token, err)
	}
}
