package security

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/models"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestCodec(t *testing.T, clock *testClock) *TokenCodec {
	t.Helper()
	privPEM, pubPEM, err := GenerateECDSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateECDSAKeyPair: %v", err)
	}
	return codecFromPEM(t, privPEM, pubPEM, clock)
}

func codecFromPEM(t *testing.T, privPEM, pubPEM []byte, clock *testClock) *TokenCodec {
	t.Helper()
	signer, err := ParsePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	codec, err := NewTokenCodec(signer, pub, TokenCodecOptions{
		Issuer:         "authorization-service",
		RefreshHashing: testParams,
		Now:            clock.Now,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return codec
}

func claimsAt(now time.Time, ttl time.Duration) AccessClaims {
	return AccessClaims{
		Role: models.UserRoleManager,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)

	signed, err := codec.GenerateAccessToken(claimsAt(clock.now, 15*time.Minute))
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	clock.now = clock.now.Add(14 * time.Minute)
	claims, err := codec.DecodeAccessToken(signed)
	if err != nil {
		t.Fatalf("DecodeAccessToken: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != models.UserRoleManager {
		t.Fatalf("claims=%+v", claims)
	}
	if claims.Issuer != "authorization-service" {
		t.Errorf("issuer=%q", claims.Issuer)
	}
}

func TestAccessTokenRoundTripRSA(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	privPEM, pubPEM, err := GenerateRSAKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair: %v", err)
	}
	codec := codecFromPEM(t, privPEM, pubPEM, clock)

	signed, err := codec.GenerateAccessToken(claimsAt(clock.now, time.Minute))
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := codec.DecodeAccessToken(signed); err != nil {
		t.Fatalf("DecodeAccessToken: %v", err)
	}
}

func TestDecodeAccessTokenExpiry(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)

	signed, err := codec.GenerateAccessToken(claimsAt(clock.now, time.Minute))
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	clock.now = clock.now.Add(time.Minute)
	if _, err := codec.DecodeAccessToken(signed); !errors.Is(err, apperr.ErrTokenExpired) {
		t.Fatalf("at expiry err=%v, want ErrTokenExpired", err)
	}

	clock.now = clock.now.Add(time.Hour)
	if _, err := codec.DecodeAccessToken(signed); !errors.Is(err, apperr.ErrTokenExpired) {
		t.Fatalf("after expiry err=%v, want ErrTokenExpired", err)
	}
}

func TestDecodeAccessTokenInvalid(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	codec := newTestCodec(t, clock)
	other := newTestCodec(t, clock)

	foreign, err := other.GenerateAccessToken(claimsAt(clock.now, time.Minute))
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	valid, err := codec.GenerateAccessToken(claimsAt(clock.now, time.Minute))
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claimsAt(clock.now, time.Minute)).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign hs256: %v", err)
	}
	noExpiry, err := codec.GenerateAccessToken(AccessClaims{
		Role:             models.UserRoleUser,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	cases := map[string]string{
		"garbage":     "not-a-token",
		"empty":       "",
		"foreign key": foreign,
		"tampered":    tampered,
		"hmac":        hmac,
		"missing exp": noExpiry,
	}
	for name, tok := range cases {
		if _, err := codec.DecodeAccessToken(tok); !errors.Is(err, apperr.ErrTokenInvalid) {
			t.Errorf("%s: err=%v, want ErrTokenInvalid", name, err)
		}
	}
}

func TestRefreshSecret(t *testing.T) {
	codec := newTestCodec(t, &testClock{now: time.Now()})

	plain, hash, err := codec.GenerateRefreshSecret()
	if err != nil {
		t.Fatalf("GenerateRefreshSecret: %v", err)
	}
	// 64 random bytes, unpadded URL-safe base64.
	if len(plain) != 86 || strings.ContainsAny(plain, "+/=") {
		t.Fatalf("plaintext %q has unexpected shape", plain)
	}
	if bytes.Contains(hash, []byte(plain)) {
		t.Fatal("hash embeds plaintext")
	}
	if !codec.VerifyRefreshSecret(plain, hash) {
		t.Fatal("fresh secret does not verify")
	}

	rotatedPlain, rotatedHash, err := codec.GenerateRefreshSecret()
	if err != nil {
		t.Fatalf("GenerateRefreshSecret: %v", err)
	}
	if rotatedPlain == plain {
		t.Fatal("rotation reused plaintext")
	}
	if codec.VerifyRefreshSecret(plain, rotatedHash) {
		t.Fatal("previous plaintext verifies against rotated hash")
	}
}

func TestVerifyRefreshSecretNeverErrors(t *testing.T) {
	codec := newTestCodec(t, &testClock{now: time.Now()})
	for _, hash := range [][]byte{nil, []byte("junk"), []byte("$argon2id$v=19$m=1$x$y")} {
		if codec.VerifyRefreshSecret("token", hash) {
			t.Errorf("VerifyRefreshSecret(%q) = true", hash)
		}
	}
	if codec.VerifyRefreshSecret("", []byte("$argon2id$")) {
		t.Error("empty plaintext verified")
	}
}

func TestNewTokenCodecRejectsMismatchedKeys(t *testing.T) {
	ecPriv, _, err := GenerateECDSAKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	_, rsaPub, err := GenerateRSAKeyPair(2048)
	if err != nil {
		t.Fatal(err)
	}
	signer, _ := ParsePrivateKey(ecPriv)
	pub, _ := ParsePublicKey(rsaPub)

	if _, err := NewTokenCodec(signer, pub, TokenCodecOptions{}, zerolog.Nop()); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err=%v, want ErrInvalidKey", err)
	}
}
