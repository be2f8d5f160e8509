package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const passwordSaltLength = 16

// Argon2Parameters controls the cost factors for Argon2id password hashing.
type Argon2Parameters struct {
	// Time is the number of iterations.
	Time uint32
	// Memory is the amount of memory (in kibibytes) to use.
	Memory uint32
	// Threads is the degree of parallelism.
	Threads uint8
	// KeyLength is the desired length of the derived key in bytes.
	KeyLength uint32
}

// DefaultArgon2Params returns the parameters used for stored credentials.
func DefaultArgon2Params() Argon2Parameters {
	return Argon2Parameters{
		Time:      2,
		Memory:    64 * 1024, // 64 MiB
		Threads:   4,
		KeyLength: 32,
	}
}

// Validate ensures the parameters are suitable for Argon2id hashing.
func (p Argon2Parameters) Validate() error {
	if p.Time == 0 {
		return fmt.Errorf("argon2: time cost must be greater than zero")
	}
	if p.Threads == 0 {
		return fmt.Errorf("argon2: parallelism must be greater than zero")
	}
	if p.Memory < 8*uint32(p.Threads) {
		return fmt.Errorf("argon2: memory cost must be at least 8 * threads")
	}
	if p.KeyLength == 0 {
		return fmt.Errorf("argon2: key length must be greater than zero")
	}
	return nil
}

// HashPassword derives an Argon2id hash of the supplied password and returns
// it in PHC string format ($argon2id$v=19$m=...,t=...,p=...$salt$key).
func HashPassword(password string) (string, error) {
	return HashPasswordWithParams(password, DefaultArgon2Params())
}

// HashPasswordWithParams hashes a password using explicit cost parameters.
func HashPasswordWithParams(password string, params Argon2Parameters) (string, error) {
	if password == "" {
		return "", errors.New("argon2: password is required")
	}
	if err := params.Validate(); err != nil {
		return "", err
	}

	salt := make([]byte, passwordSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.Memory,
		params.Time,
		params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword re-derives the key from the candidate password and compares
// it against the stored hash in constant time.
func VerifyPassword(encoded, password string) bool {
	params, salt, key, err := decodePasswordHash(encoded)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1
}

// dummyHash is a throwaway credential used to equalise verification cost for
// unknown accounts. The plaintext is irrelevant; it is never accepted.
var dummyHash = func() string {
	hash, err := HashPasswordWithParams("claimsdesk-dummy-credential", DefaultArgon2Params())
	if err != nil {
		panic(fmt.Sprintf("crypto: initialise dummy hash: %v", err))
	}
	return hash
}()

// DummyVerify burns the same Argon2id cost as a real verification. Callers use
// it when the target account does not exist so response timing does not reveal
// which emails are registered.
func DummyVerify(password string) {
	VerifyPassword(dummyHash, password)
}

func decodePasswordHash(encoded string) (Argon2Parameters, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2Parameters{}, nil, nil, errors.New("argon2: malformed hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Argon2Parameters{}, nil, nil, fmt.Errorf("argon2: parse version: %w", err)
	}
	if version != argon2.Version {
		return Argon2Parameters{}, nil, nil, fmt.Errorf("argon2: unsupported version %d", version)
	}

	var params Argon2Parameters
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return Argon2Parameters{}, nil, nil, fmt.Errorf("argon2: parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Parameters{}, nil, nil, fmt.Errorf("argon2: decode salt: %w", err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Argon2Parameters{}, nil, nil, fmt.Errorf("argon2: decode key: %w", err)
	}
	params.KeyLength = uint32(len(key))

	return params, salt, key, nil
}
