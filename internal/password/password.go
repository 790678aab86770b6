// Package password computes and verifies the keyed password digests stored with a person.
package password

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"hash"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Supported algorithms.
const (
	SHA256     = "sha256"
	SHA512     = "sha512"
	SHA3256    = "sha3-256"
	SHA3512    = "sha3-512"
	Blake2b256 = "blake2b-256"
	Argon2id   = "argon2id"

	// MinLength is the minimum number of characters of a password.
	MinLength = 8
)

var (
	// ErrUnsupportedAlgorithm is returned for an unknown algorithm name.
	ErrUnsupportedAlgorithm = errors.New("unsupported password digest algorithm")
	// ErrEmptyKey is returned when a keyed algorithm gets no key.
	ErrEmptyKey = errors.New("password digest key can not be empty")
)

// Hasher digests and verifies passwords.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// New returns the hasher of algorithm keyed with key.
// Algorithm names are case insensitive.
func New(algorithm, key string) (Hasher, error) {
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))

	if algorithm == Argon2id {
		return argonHasher{params: argon2id.DefaultParams}, nil
	}

	if key == "" {
		return nil, ErrEmptyKey
	}

	var newHash func() hash.Hash

	switch algorithm {
	case SHA256, "":
		newHash = sha256.New
	case SHA512:
		newHash = sha512.New
	case SHA3256:
		newHash = sha3.New256
	case SHA3512:
		newHash = sha3.New512
	case Blake2b256:
		if len(key) > blake2b.Size {
			return nil, errors.New("blake2b key is longer than 64 bytes")
		}

		return blakeHasher{key: []byte(key)}, nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}

	return hmacHasher{newHash: newHash, key: []byte(key)}, nil
}

type hmacHasher struct {
	newHash func() hash.Hash
	key     []byte
}

func (h hmacHasher) Hash(plain string) (string, error) {
	mac := hmac.New(h.newHash, h.key)
	_, _ = mac.Write([]byte(plain))

	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (h hmacHasher) Verify(plain, digest string) bool {
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}

	mac := hmac.New(h.newHash, h.key)
	_, _ = mac.Write([]byte(plain))

	return hmac.Equal(mac.Sum(nil), want)
}

type blakeHasher struct {
	key []byte
}

func (h blakeHasher) sum(plain string) []byte {
	// New256 only fails on keys longer than 64 bytes, rejected in New.
	d, _ := blake2b.New256(h.key)
	_, _ = d.Write([]byte(plain))

	return d.Sum(nil)
}

func (h blakeHasher) Hash(plain string) (string, error) {
	return hex.EncodeToString(h.sum(plain)), nil
}

func (h blakeHasher) Verify(plain, digest string) bool {
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}

	return hmac.Equal(h.sum(plain), want)
}

type argonHasher struct {
	params *argon2id.Params
}

func (h argonHasher) Hash(plain string) (string, error) {
	return argon2id.CreateHash(plain, h.params) //nolint:wrapcheck
}

func (h argonHasher) Verify(plain, digest string) bool {
	ok, err := argon2id.ComparePasswordAndHash(plain, digest)
	return err == nil && ok
}
