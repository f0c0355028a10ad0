package razorpay

// Verifier checks checkout callback signatures with the account's key
// secret.
type Verifier struct {
	secret string
}

func NewVerifier(keySecret string) *Verifier {
	return &Verifier{secret: keySecret}
}

func (v *Verifier) Verify(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return VerifySignature(SignaturePayload(gatewayOrderID, gatewayPaymentID), signature, v.secret)
}
