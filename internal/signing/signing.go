// Package signing implements the canonical HMAC-SHA256 signed-payload codec
// (C1) shared by the Receiver (verify side) and the Issuer (sign side). The
// exact bytes sent are the bytes signed: callers must pass the raw request
// or dispatch body, never a re-serialization of it.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadSignature     = errors.New("bad signature")
	ErrStaleTimestamp   = errors.New("stale timestamp")
	ErrMalformedHeader  = errors.New("malformed signature header")
	ErrMalformedTimestamp = errors.New("malformed timestamp header")
)

const sigPrefix = "sha256="

// Sign returns the canonical "sha256=<hex>" signature header value for body
// under secret.
func Sign(secret []byte, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return sigPrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks header against the HMAC-SHA256 of body under secret using a
// constant-time comparison. header must be of the form "sha256=<hex>".
func Verify(secret []byte, body []byte, header string) error {
	digest, err := parseDigest(header)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	if !hmac.Equal(digest, expected) {
		return ErrBadSignature
	}
	return nil
}

func parseDigest(header string) ([]byte, error) {
	if !strings.HasPrefix(header, sigPrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrMalformedHeader, sigPrefix)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(header, sigPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	return raw, nil
}

// CheckFreshness rejects timestamps further than window from now in either
// direction, guarding against replay of stale signed requests.
func CheckFreshness(unixSeconds string, now time.Time, window time.Duration) error {
	ts, err := strconv.ParseInt(unixSeconds, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedTimestamp, err)
	}
	delta := now.Sub(time.Unix(ts, 0))
	if delta < 0 {
		delta = -delta
	}
	if delta > window {
		return ErrStaleTimestamp
	}
	return nil
}
