package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	app "github.com/pharmakart/pharmakart/internal/application/payment"
)

const tracerName = "pharmakart.gateway"

// Client talks to the Razorpay REST API. Calls carry the configured
// timeout through the underlying http.Client so a stalled gateway cannot
// pin a request forever; callers hold no locks while a call is in flight.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client

	requests  *prometheus.CounterVec   // gateway_requests_total{endpoint,outcome}
	durations *prometheus.HistogramVec // gateway_request_duration_seconds{endpoint}
}

type Option func(*Client)

// WithMetrics wires the request counter and duration histogram created in
// main.
func WithMetrics(requests *prometheus.CounterVec, durations *prometheus.HistogramVec) Option {
	return func(c *Client) {
		c.requests = requests
		c.durations = durations
	}
}

func NewClient(baseURL, keyID, keySecret string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL:    baseURL,
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type gatewayOrderResponse struct {
	ID string `json:"id"`
}

type gatewayPaymentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type gatewayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder registers an order with the gateway and returns its id.
// Amounts are already in minor units (paise for INR).
func (c *Client) CreateOrder(ctx context.Context, req app.GatewayOrderRequest) (string, error) {
	body := map[string]any{
		"amount":   req.AmountMinorUnits,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if req.Notes != "" {
		body["notes"] = map[string]string{"description": req.Notes}
	}

	var out gatewayOrderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders", "orders.create", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("razorpay: order response missing id")
	}
	return out.ID, nil
}

// FetchPayment returns the gateway's authoritative status for a payment,
// e.g. "created", "authorized", "captured", "failed".
func (c *Client) FetchPayment(ctx context.Context, gatewayPaymentID string) (string, error) {
	var out gatewayPaymentResponse
	path := "/v1/payments/" + gatewayPaymentID
	if err := c.do(ctx, http.MethodGet, path, "payments.fetch", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, body, out any) (err error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Gateway."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("peer.service", "razorpay"),
		),
	)
	start := time.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if c.requests != nil {
			c.requests.WithLabelValues(endpoint, outcome).Inc()
		}
		if c.durations != nil {
			c.durations.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return fmt.Errorf("razorpay: encode request: %w", merr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("razorpay: build request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("razorpay: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gwErr gatewayErrorResponse
		if derr := json.NewDecoder(resp.Body).Decode(&gwErr); derr == nil && gwErr.Error.Description != "" {
			return fmt.Errorf("razorpay: %s: %s (%s)", endpoint, gwErr.Error.Description, gwErr.Error.Code)
		}
		return fmt.Errorf("razorpay: %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	if out != nil {
		if derr := json.NewDecoder(resp.Body).Decode(out); derr != nil {
			return fmt.Errorf("razorpay: decode response: %w", derr)
		}
	}
	return nil
}
