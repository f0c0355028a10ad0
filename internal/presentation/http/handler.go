package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apporder "github.com/pharmakart/pharmakart/internal/application/order"
	apppayment "github.com/pharmakart/pharmakart/internal/application/payment"
	dommedicine "github.com/pharmakart/pharmakart/internal/domain/medicine"
	domorder "github.com/pharmakart/pharmakart/internal/domain/order"
	dompayment "github.com/pharmakart/pharmakart/internal/domain/payment"
	domuser "github.com/pharmakart/pharmakart/internal/domain/user"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerUserEmail      = "X-User-Email"
)

// Handler exposes the order and payment workflows over JSON HTTP. The
// caller identity comes from the X-User-Email header set by the edge
// proxy after authentication.
type Handler struct {
	orderService   *apporder.Service
	paymentService *apppayment.Service
	log            *zap.Logger
	validate       *validator.Validate

	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

func NewHandler(
	orderSvc *apporder.Service,
	paymentSvc *apppayment.Service,
	logger *zap.Logger,
	httpRequests *prometheus.CounterVec,
	httpDurations *prometheus.HistogramVec,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		orderService:   orderSvc,
		paymentService: paymentSvc,
		log:            logger.With(zap.String("component", componentHTTPHandler)),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		httpRequests:   httpRequests,
		httpDurations:  httpDurations,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Wire each route with middlewares:
	// Trace → request logger → HTTP metrics → Access log → Handler
	h.muxHandle(mux, "POST /api/orders", h.handleCreateOrder)
	h.muxHandle(mux, "GET /api/orders", h.handleListOrders)
	h.muxHandle(mux, "GET /api/orders/user", h.handleListUserOrders)
	h.muxHandle(mux, "GET /api/orders/{id}", h.handleGetOrder)
	h.muxHandle(mux, "PATCH /api/orders/{id}/status", h.handleUpdateOrderStatus)
	h.muxHandle(mux, "POST /api/payments/create-order", h.handleCreatePaymentIntent)
	h.muxHandle(mux, "POST /api/payments/verify", h.handleVerifyPayment)
	h.muxHandle(mux, "GET /api/payments/order/{orderId}", h.handleGetPaymentByOrder)
	h.muxHandle(mux, "GET /health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		// Store the stable route template for low-cardinality labels.
		ctx := contextWithRoute(r.Context(), pattern)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			h.withRequestLogger(
				h.withAccessLog(
					h.withHTTPMetrics(handler),
				),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

// requestorEmail reads the authenticated caller's email. Empty means the
// edge did not authenticate the request.
func requestorEmail(r *http.Request) (string, error) {
	email := r.Header.Get(headerUserEmail)
	if email == "" {
		return "", errors.New("missing " + headerUserEmail + " header")
	}
	return email, nil
}

type orderItemRequest struct {
	MedicineID string `json:"medicine_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string             `json:"shipping_address" validate:"required"`
	PaymentMethod   string             `json:"payment_method"`
}

type orderItemResponse struct {
	MedicineID   string          `json:"medicine_id"`
	MedicineName string          `json:"medicine_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	OrderID         string              `json:"order_id"`
	UserID          string              `json:"user_id"`
	Items           []orderItemResponse `json:"items"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Status          domorder.Status     `json:"status"`
	OrderDate       string              `json:"order_date"`
	ShippingAddress string              `json:"shipping_address"`
	PaymentMethod   string              `json:"payment_method"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	email, err := requestorEmail(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	var req createOrderRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := make([]apporder.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, apporder.ItemInput{MedicineID: it.MedicineID, Quantity: it.Quantity})
	}

	view, err := h.orderService.Create(r.Context(), apporder.CreateOrderInput{
		RequestorEmail:  email,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(view))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.orderService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(view))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.orderService.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(views))
}

func (h *Handler) handleListUserOrders(w http.ResponseWriter, r *http.Request) {
	email, err := requestorEmail(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	views, err := h.orderService.ListByUser(r.Context(), email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(views))
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := h.orderService.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(view))
}

type createPaymentRequest struct {
	OrderID  string          `json:"order_id" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	Notes    string          `json:"notes"`
}

type createPaymentResponse struct {
	GatewayOrderID string          `json:"razorpay_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Receipt        string          `json:"receipt"`
	Status         string          `json:"status"`
	KeyID          string          `json:"key_id"`
}

func (h *Handler) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	email, err := requestorEmail(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	var req createPaymentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := h.paymentService.CreateIntent(r.Context(), apppayment.CreateIntentInput{
		OrderID:        req.OrderID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Receipt:        req.Receipt,
		Notes:          req.Notes,
		RequestorEmail: email,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createPaymentResponse{
		GatewayOrderID: view.GatewayOrderID,
		Amount:         view.Amount,
		Currency:       view.Currency,
		Receipt:        view.Receipt,
		Status:         view.Status,
		KeyID:          view.KeyID,
	})
}

type verifyPaymentRequest struct {
	OrderID          string `json:"order_id"`
	GatewayOrderID   string `json:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature        string `json:"razorpay_signature" validate:"required"`
}

type paymentResponse struct {
	PaymentID        string            `json:"payment_id"`
	OrderID          string            `json:"order_id"`
	GatewayOrderID   string            `json:"razorpay_order_id"`
	GatewayPaymentID string            `json:"razorpay_payment_id,omitempty"`
	Amount           decimal.Decimal   `json:"amount"`
	Status           dompayment.Status `json:"status"`
	PaymentMethod    string            `json:"payment_method,omitempty"`
	ErrorCode        string            `json:"error_code,omitempty"`
	ErrorDescription string            `json:"error_description,omitempty"`
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	email, err := requestorEmail(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	var req verifyPaymentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := h.paymentService.Verify(r.Context(), apppayment.VerifyInput{
		OrderID:          req.OrderID,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
		RequestorEmail:   email,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(view))
}

func (h *Handler) handleGetPaymentByOrder(w http.ResponseWriter, r *http.Request) {
	email, err := requestorEmail(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	view, err := h.paymentService.GetByOrder(r.Context(), r.PathValue("orderId"), email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(view))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

func toOrderResponse(v *apporder.View) orderResponse {
	items := make([]orderItemResponse, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, orderItemResponse{
			MedicineID:   it.MedicineID,
			MedicineName: it.MedicineName,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			Subtotal:     it.Subtotal,
		})
	}
	return orderResponse{
		OrderID:         v.ID,
		UserID:          v.UserID,
		Items:           items,
		TotalAmount:     v.TotalAmount,
		Status:          v.Status,
		OrderDate:       v.OrderDate,
		ShippingAddress: v.ShippingAddress,
		PaymentMethod:   v.PaymentMethod,
	}
}

func toOrderResponses(views []*apporder.View) []orderResponse {
	out := make([]orderResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toOrderResponse(v))
	}
	return out
}

func toPaymentResponse(v *apppayment.View) paymentResponse {
	return paymentResponse{
		PaymentID:        v.PaymentID,
		OrderID:          v.OrderID,
		GatewayOrderID:   v.GatewayOrderID,
		GatewayPaymentID: v.GatewayPaymentID,
		Amount:           v.Amount,
		Status:           v.Status,
		PaymentMethod:    v.PaymentMethod,
		ErrorCode:        v.ErrorCode,
		ErrorDescription: v.ErrorDescription,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, dommedicine.ErrNotFound),
		errors.Is(err, dompayment.ErrNotFound),
		errors.Is(err, domuser.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, dommedicine.ErrInvalidQuantity),
		errors.Is(err, dommedicine.ErrInsufficientStock),
		errors.Is(err, domorder.ErrNoItems),
		errors.Is(err, domorder.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrUnknownStatus),
		errors.Is(err, apppayment.ErrAmountMismatch),
		errors.Is(err, apppayment.ErrAmountNotRepresentable):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domorder.ErrPendingReentry),
		errors.Is(err, dompayment.ErrInvalidTransition),
		errors.Is(err, dompayment.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, apppayment.ErrGateway):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
