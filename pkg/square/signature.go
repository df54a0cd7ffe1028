package square

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignatureHeader carries the base64 HMAC-SHA256 Square computes over the
// notification URL followed by the raw body.
const SignatureHeader = "X-Square-Hmacsha256-Signature"

// ComputeSignature returns the expected signature header value.
func ComputeSignature(signatureKey, notificationURL string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signatureKey))
	mac.Write([]byte(notificationURL))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the provided header against the expected value in
// constant time.
func VerifySignature(signatureKey, notificationURL string, body []byte, provided string) bool {
	provided = strings.TrimSpace(provided)
	if signatureKey == "" || provided == "" {
		return false
	}
	expected := ComputeSignature(signatureKey, notificationURL, body)
	return hmac.Equal([]byte(expected), []byte(provided))
}
