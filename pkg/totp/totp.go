// Package totp implements RFC 6238 time-based one-time passwords for the
// authenticator-app second factor. Codes are 6 digits over HMAC-SHA1 with a
// 30-second period, which is what the common authenticator apps expect.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	secretBytes = 20
	digits      = 6
	period      = 30 * time.Second

	// skew tolerates one period of clock drift on either side.
	skew = 1
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a fresh base32-encoded shared secret.
func GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return encoding.EncodeToString(raw), nil
}

// ProvisionURI builds the otpauth:// URL an authenticator app enrolls from.
func ProvisionURI(issuer, account, secret string) string {
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(int(period/time.Second)))
	v.Set("digits", strconv.Itoa(digits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify reports whether code is valid for secret at the current time.
func Verify(secret, code string) bool {
	return VerifyAt(secret, code, time.Now())
}

// VerifyAt checks a code against the counter window around t.
func VerifyAt(secret, code string, t time.Time) bool {
	if len(code) != digits {
		return false
	}

	key, err := encoding.DecodeString(secret)
	if err != nil || len(key) == 0 {
		return false
	}

	base := t.Unix() / int64(period/time.Second)
	for step := int64(-skew); step <= skew; step++ {
		counter := base + step
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(key, counter)), []byte(code)) == 1 {
			return true
		}
	}

	return false
}

// CodeAt computes the code for secret at t. Used by enrollment tests and by
// anything that needs to display the current expected code.
func CodeAt(secret string, t time.Time) (string, error) {
	key, err := encoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("invalid totp secret: %w", err)
	}
	return hotpCode(key, t.Unix()/int64(period/time.Second)), nil
}

// hotpCode is RFC 4226 dynamic truncation over an HMAC-SHA1 of the counter.
func hotpCode(key []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod)
}
