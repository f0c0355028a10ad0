package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignaturePayload is the canonical string the gateway signs on checkout
// completion: the gateway order id and payment id joined by a pipe.
func SignaturePayload(gatewayOrderID, gatewayPaymentID string) string {
	return gatewayOrderID + "|" + gatewayPaymentID
}

// VerifySignature checks a hex-encoded HMAC-SHA256 signature over payload
// using the key secret. The comparison is constant time.
func VerifySignature(payload, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces the hex-encoded HMAC-SHA256 signature for payload. Only
// used by tests and tooling; the gateway signs real callbacks.
func Sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
