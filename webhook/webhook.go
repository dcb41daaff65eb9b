// Package webhook signs, verifies and parses Gateway webhook deliveries.
//
// The Gateway signs each delivery with HMAC-SHA256 over the raw body, hex
// encoded in the X-Gate-Signature header. Verify against the shared secret
// before trusting a payload; a parsed Event is the decoded document with a
// few typed getters.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	gate "github.com/applax-dev/gate-sdk"
)

// SignatureHeader is the HTTP header carrying the hex signature.
const SignatureHeader = "X-Gate-Signature"

// ErrBadSignature is returned by ParseVerified when the signature does not
// match the body.
var ErrBadSignature = errors.New("webhook signature mismatch")

// Sign computes the hex HMAC-SHA256 signature of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret. The comparison
// is constant-time.
func Verify(body []byte, signature, secret string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hmac.Equal(mac.Sum(nil), want)
}

// Event is one decoded webhook delivery.
type Event struct {
	gate.Object
}

// Type returns the event name, e.g. "order.payment_success".
func (e Event) Type() string {
	return e.String("type")
}

// Data returns the resource document the delivery describes.
func (e Event) Data() gate.Object {
	return e.Object.Object("data")
}

// Parse decodes a delivery body. It fails on anything that is not a JSON
// object. Parse does not check the signature; use Verify or ParseVerified.
func Parse(body []byte) (Event, error) {
	var doc gate.Object

	if err := json.Unmarshal(body, &doc); err != nil {
		return Event{}, fmt.Errorf("decoding webhook body: %w", err)
	}

	if doc == nil {
		return Event{}, errors.New("webhook body is not an object")
	}

	return Event{Object: doc}, nil
}

// ParseVerified checks the signature and decodes the delivery in one step.
func ParseVerified(body []byte, signature, secret string) (Event, error) {
	if !Verify(body, signature, secret) {
		return Event{}, ErrBadSignature
	}

	return Parse(body)
}
