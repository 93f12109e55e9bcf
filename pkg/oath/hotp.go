package oath

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash"
)

// HOTP computes an RFC 4226 code for the given counter.
func (c Credential) HOTP(counter uint64) (uint32, error) {
	key, err := decodeSecret(c.Secret)
	if err != nil {
		return 0, fmt.Errorf("decode secret for %q: %w", c.Name, err)
	}
	newHash, err := c.Algorithm.hasher()
	if err != nil {
		return 0, err
	}
	msg := make([]byte, 8)
	binary.BigEndian.PutUint64(msg, counter)
	mac := hmac.New(newHash, key)
	mac.Write(msg)
	sum := mac.Sum(nil)

	// RFC 4226 dynamic truncation.
	offset := sum[len(sum)-1] & 0xf
	trunc := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return trunc % pow10(c.digits()), nil
}

// TOTP computes an RFC 6238 code at the given Unix timestamp.
func (c Credential) TOTP(timestamp int64) (uint32, error) {
	period := c.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	return c.HOTP(uint64(timestamp) / uint64(period))
}

// CodeAt computes the credential's code for timestamp. HOTP credentials use
// their stored counter; advancing it is the caller's concern.
func (c Credential) CodeAt(timestamp int64) (uint32, error) {
	if c.Type == TypeHOTP {
		return c.HOTP(c.Counter)
	}
	return c.TOTP(timestamp)
}

// FormatCode renders a numeric code zero-padded to the credential's width.
func FormatCode(code uint32, digits int) string {
	if digits <= 0 {
		digits = DefaultDigits
	}
	return fmt.Sprintf("%0*d", digits, code)
}

func (c Credential) digits() int {
	if c.Digits <= 0 {
		return DefaultDigits
	}
	return c.Digits
}

func (a Algorithm) hasher() (func() hash.Hash, error) {
	switch a {
	case SHA1, "":
		return sha1.New, nil
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", a)
	}
}

func pow10(n int) uint32 {
	out := uint32(1)
	for i := 0; i < n; i++ {
		out *= 10
	}
	return out
}

func decodeSecret(secret string) ([]byte, error) {
	return base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(NormalizeSecret(secret))
}
