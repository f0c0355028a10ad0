package payment

import "context"

// GatewayStatusCaptured is the remote status that settles a payment.
const GatewayStatusCaptured = "captured"

type GatewayOrderRequest struct {
	AmountMinorUnits int64
	Currency         string
	Receipt          string
	Notes            string
}

// Gateway is the outbound port to the payment provider. Implementations
// must bound their network calls with a timeout; the workflow holds no
// repository locks while a call is in flight.
type Gateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (gatewayOrderID string, err error)
	FetchPayment(ctx context.Context, gatewayPaymentID string) (remoteStatus string, err error)
}

// SignatureVerifier checks a checkout callback signature against the shared
// gateway secret. Implementations must compare in constant time.
type SignatureVerifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, signature string) bool
}
