package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Cost floor. Hashes below it are treated as malformed rather than verified.
const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// DefaultMaxPasswordBytes caps the input length when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

// ErrPasswordTooLong is returned by Hash for input above the configured byte cap.
var ErrPasswordTooLong = errors.New("password exceeds maximum length")

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MaxPasswordBytes bounds the work a caller can force per hash.
	MaxPasswordBytes int
}

// DefaultConfig returns the cost parameters used for new hashes.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate checks cfg against the cost floor.
func (c Config) Validate() error {
	errb := oops.Code("PASSWORD_CONFIG_INVALID")
	switch {
	case c.Memory < minMemoryKB:
		return errb.With("memory_kib", c.Memory).Errorf("password memory must be >= %d KiB", minMemoryKB)
	case c.Time < minTimeCost:
		return errb.With("time", c.Time).Errorf("password time must be >= %d", minTimeCost)
	case c.Parallelism < minParallelism:
		return errb.With("parallelism", c.Parallelism).Errorf("password parallelism must be >= %d", minParallelism)
	case c.SaltLength < minSaltLength:
		return errb.With("salt_length", c.SaltLength).Errorf("password salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return errb.With("key_length", c.KeyLength).Errorf("password key length must be >= %d", minKeyLength)
	case c.MaxPasswordBytes < 0:
		return errb.With("max_password_bytes", c.MaxPasswordBytes).Errorf("password max bytes must be >= 0")
	}
	return nil
}

// Argon2 hashes with argon2id and verifies both argon2id PHC strings and legacy
// bcrypt hashes. It is immutable after construction and safe for concurrent use.
type Argon2 struct {
	cfg Config
}

// NewArgon2 validates cfg and fills in the default byte cap.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{cfg: cfg}, nil
}

// Hash returns a PHC-encoded argon2id hash with a fresh random salt.
// The password bytes are used exactly as given.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) > a.cfg.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", oops.Code("PASSWORD_SALT_FAILED").Wrap(err)
	}

	return phc{
		memory:      a.cfg.Memory,
		time:        a.cfg.Time,
		parallelism: a.cfg.Parallelism,
		salt:        salt,
		key:         argon2.IDKey([]byte(password), salt, a.cfg.Time, a.cfg.Memory, a.cfg.Parallelism, a.cfg.KeyLength),
	}.String(), nil
}

// Verify reports whether password matches encodedHash. Cost parameters come from
// the hash, so hashes made under older settings keep verifying. A malformed hash
// is indistinguishable from a mismatch.
func (a *Argon2) Verify(password string, encodedHash string) bool {
	if len(password) > a.cfg.MaxPasswordBytes {
		return false
	}
	if isBcrypt(encodedHash) {
		return verifyBcrypt(password, encodedHash)
	}

	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), stored.salt, stored.time, stored.memory, stored.parallelism, uint32(len(stored.key)))
	return subtle.ConstantTimeCompare(got, stored.key) == 1
}

// NeedsUpgrade reports whether encodedHash is legacy bcrypt or was produced with
// weaker parameters than the current config. Unparseable hashes report false.
func (a *Argon2) NeedsUpgrade(encodedHash string) bool {
	if isBcrypt(encodedHash) {
		return true
	}
	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false
	}
	return stored.weakerThan(a.cfg)
}

// Config returns the active cost parameters.
func (a *Argon2) Config() Config {
	return a.cfg
}
