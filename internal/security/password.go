package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/NeZlox/authorization-service/internal/config"
)

var ErrMalformedHash = errors.New("malformed argon2 hash")

// maxArgon2Memory caps the m= value accepted from a stored hash, in KiB.
const maxArgon2Memory = 1 << 20

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

func Argon2ParamsFrom(cfg config.Argon2Config) Argon2Params {
	return Argon2Params{
		Time:    cfg.Time,
		Memory:  cfg.Memory,
		Threads: cfg.Threads,
		KeyLen:  cfg.KeyLen,
		SaltLen: cfg.SaltLen,
	}
}

// Argon2Hasher produces encoded argon2id hashes of the form
// $argon2id$v=19$m=<kib>,t=<passes>,p=<threads>$<salt>$<key>.
type Argon2Hasher struct {
	params Argon2Params
}

func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{params: params}
}

func (h *Argon2Hasher) Hash(plain string) ([]byte, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	return []byte(encoded), nil
}

// Verify re-derives the key with the parameters stored in the hash. A mismatch is (false, nil).
func (h *Argon2Hasher) Verify(plain string, encodedHash []byte) (bool, error) {
	parts := strings.Split(string(encodedHash), "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var (
		memory  uint32
		time    uint32
		threads uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if time == 0 || threads == 0 {
		return false, fmt.Errorf("%w: t=%d p=%d", ErrMalformedHash, time, threads)
	}
	if memory < 8*uint32(threads) || memory > maxArgon2Memory {
		return false, fmt.Errorf("%w: m=%d out of range", ErrMalformedHash, memory)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode key: %w", err)
	}
	if len(salt) == 0 || len(key) == 0 {
		return false, ErrMalformedHash
	}

	computed := argon2.IDKey([]byte(plain), salt, time, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}
