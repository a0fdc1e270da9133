package security

import (
	"crypto"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/NeZlox/authorization-service/internal/apperr"
	"github.com/NeZlox/authorization-service/internal/models"
)

const DefaultRefreshTokenLength = 64

type AccessClaims struct {
	Role models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type TokenCodecOptions struct {
	Issuer             string
	RefreshTokenLength int
	RefreshHashing     Argon2Params
	// Now overrides the clock used to validate expiry.
	Now func() time.Time
}

// TokenCodec signs access tokens with an asymmetric key and mints hashed refresh secrets.
type TokenCodec struct {
	signer     crypto.Signer
	publicKey  crypto.PublicKey
	method     jwt.SigningMethod
	issuer     string
	refreshLen int
	refresh    *Argon2Hasher
	now        func() time.Time
	log        zerolog.Logger
}

func NewTokenCodec(signer crypto.Signer, publicKey crypto.PublicKey, opts TokenCodecOptions, log zerolog.Logger) (*TokenCodec, error) {
	if signer == nil || publicKey == nil {
		return nil, ErrInvalidKey
	}
	method, err := SigningMethodFor(publicKey)
	if err != nil {
		return nil, err
	}
	signerMethod, err := SigningMethodFor(signer.Public())
	if err != nil {
		return nil, err
	}
	if signerMethod != method {
		return nil, fmt.Errorf("%w: private and public key algorithms differ", ErrInvalidKey)
	}

	length := opts.RefreshTokenLength
	if length <= 0 {
		length = DefaultRefreshTokenLength
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &TokenCodec{
		signer:     signer,
		publicKey:  publicKey,
		method:     method,
		issuer:     opts.Issuer,
		refreshLen: length,
		refresh:    NewArgon2Hasher(opts.RefreshHashing),
		now:        now,
		log:        log.With().Str("component", "token_codec").Logger(),
	}, nil
}

func (c *TokenCodec) GenerateAccessToken(claims AccessClaims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = c.issuer
	}
	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.signer)
	if err != nil {
		c.log.WithLevel(zerolog.FatalLevel).Err(err).Str("sub", claims.Subject).Msg("access token signing failed")
		return "", apperr.Wrap(apperr.ErrEncoding, err)
	}
	return signed, nil
}

func (c *TokenCodec) DecodeAccessToken(signed string) (*AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(signed, &AccessClaims{}, func(*jwt.Token) (interface{}, error) {
		return c.publicKey, nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperr.Wrap(apperr.ErrTokenExpired, err)
	case isValidationError(err):
		return nil, apperr.Wrap(apperr.ErrTokenInvalid, err)
	default:
		c.log.WithLevel(zerolog.FatalLevel).Err(err).Msg("access token decoding failed")
		return nil, apperr.Wrap(apperr.ErrDecoding, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		c.log.WithLevel(zerolog.FatalLevel).Msg("access token decoded into unexpected claims")
		return nil, apperr.ErrDecoding
	}
	if claims.Subject == "" {
		return nil, apperr.Wrap(apperr.ErrTokenInvalid, jwt.ErrTokenRequiredClaimMissing)
	}
	return claims, nil
}

func isValidationError(err error) bool {
	for _, target := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenInvalidClaims,
		jwt.ErrTokenRequiredClaimMissing,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUsedBeforeIssued,
		jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenInvalidAudience,
		jwt.ErrTokenInvalidSubject,
		jwt.ErrTokenInvalidId,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GenerateRefreshSecret returns the URL-safe plaintext handed to the client and its argon2id hash.
func (c *TokenCodec) GenerateRefreshSecret() (string, []byte, error) {
	buf := make([]byte, c.refreshLen)
	if _, err := rand.Read(buf); err != nil {
		c.log.WithLevel(zerolog.FatalLevel).Err(err).Msg("refresh secret generation failed")
		return "", nil, apperr.Wrap(apperr.ErrEncoding, err)
	}

	plain := base64.RawURLEncoding.EncodeToString(buf)
	hash, err := c.refresh.Hash(plain)
	if err != nil {
		c.log.WithLevel(zerolog.FatalLevel).Err(err).Msg("refresh secret hashing failed")
		return "", nil, apperr.Wrap(apperr.ErrEncoding, err)
	}
	return plain, hash, nil
}

func (c *TokenCodec) VerifyRefreshSecret(plain string, hash []byte) bool {
	if plain == "" || len(hash) == 0 {
		return false
	}
	ok, err := c.refresh.Verify(plain, hash)
	if err != nil {
		c.log.Warn().Err(err).Msg("refresh secret verification failed")
		return false
	}
	return ok
}
