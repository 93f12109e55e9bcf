package oath

import (
	"fmt"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Type enumerates supported credential kinds.
type Type string

const (
	TypeTOTP Type = "totp"
	TypeHOTP Type = "hotp"
)

// Algorithm enumerates supported HMAC hash functions.
type Algorithm string

const (
	SHA1   Algorithm = "SHA1"
	SHA256 Algorithm = "SHA256"
	SHA512 Algorithm = "SHA512"
)

// Defaults for new credentials, per the authenticator-app convention.
const (
	DefaultDigits = 6
	DefaultPeriod = 30
)

// Credential is one stored OATH secret.
type Credential struct {
	ID        string
	Name      string
	Secret    string // base32
	Type      Type
	Algorithm Algorithm
	Digits    int
	Period    int    // seconds, TOTP only
	Counter   uint64 // HOTP only
	CreatedAt int64
	UpdatedAt int64
}

// Validate checks the fields a credential needs before it can produce codes.
func (c Credential) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("credential name required")
	}
	if _, err := decodeSecret(c.Secret); err != nil {
		return fmt.Errorf("secret for %q is not valid base32: %w", c.Name, err)
	}
	switch c.Type {
	case TypeTOTP, TypeHOTP, "":
	default:
		return fmt.Errorf("unknown credential type %q", c.Type)
	}
	switch c.Algorithm {
	case SHA1, SHA256, SHA512, "":
	default:
		return fmt.Errorf("unknown algorithm %q", c.Algorithm)
	}
	if c.Digits != 0 && (c.Digits < 6 || c.Digits > 8) {
		return fmt.Errorf("digits must be 6-8, got %d", c.Digits)
	}
	if c.Period < 0 {
		return fmt.Errorf("period must not be negative, got %d", c.Period)
	}
	return nil
}

// NormalizeSecret canonicalizes a base32 secret for storage: uppercased,
// spaces and padding stripped.
func NormalizeSecret(secret string) string {
	s := strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	return strings.TrimRight(s, "=")
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewID generates a ULID string for credentials and invocation ids.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
