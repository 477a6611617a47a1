package relay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// callbackContext prefixes the string signed for inbound callbacks, so a
// signed outbound request never verifies as a callback.
const callbackContext = "n8n-callback"

// Sign returns the lowercase hex HMAC-SHA256 of "{timestamp}.{body}" keyed by secret.
func Sign(secret, timestamp string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(timestamp))
	h.Write([]byte("."))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// SignCallback signs "n8n-callback.{timestamp}.{body}", the form the engine
// uses when it calls back into the service.
func SignCallback(secret, timestamp string, body []byte) string {
	return Sign(secret, callbackContext+"."+timestamp, body)
}

// Verify checks a signature produced by Sign and rejects timestamps further
// than tolerance from now in either direction. A zero tolerance disables the
// replay window.
func Verify(secret, timestamp string, body []byte, signature string, tolerance time.Duration, now time.Time) error {
	return verify(Sign, secret, timestamp, body, signature, tolerance, now)
}

// VerifyCallback is Verify for signatures produced by SignCallback.
func VerifyCallback(secret, timestamp string, body []byte, signature string, tolerance time.Duration, now time.Time) error {
	return verify(SignCallback, secret, timestamp, body, signature, tolerance, now)
}

func verify(sign func(secret, timestamp string, body []byte) string,
	secret, timestamp string, body []byte, signature string, tolerance time.Duration, now time.Time) error {
	if timestamp == "" || signature == "" {
		return ErrMissingSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrMalformedTimestamp
	}

	if tolerance > 0 {
		skew := now.Sub(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > tolerance {
			return ErrTimestampExpired
		}
	}

	provided, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return ErrInvalidSignature
	}

	expected, _ := hex.DecodeString(sign(secret, timestamp, body))
	if !hmac.Equal(provided, expected) {
		return ErrInvalidSignature
	}

	return nil
}
