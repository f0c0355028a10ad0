package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apporder "github.com/pharmakart/pharmakart/internal/application/order"
	apppayment "github.com/pharmakart/pharmakart/internal/application/payment"
	"github.com/pharmakart/pharmakart/internal/config"
	dommedicine "github.com/pharmakart/pharmakart/internal/domain/medicine"
	domorder "github.com/pharmakart/pharmakart/internal/domain/order"
	dompayment "github.com/pharmakart/pharmakart/internal/domain/payment"
	domuser "github.com/pharmakart/pharmakart/internal/domain/user"
	"github.com/pharmakart/pharmakart/internal/infrastructure/id"
	"github.com/pharmakart/pharmakart/internal/infrastructure/memory"
	"github.com/pharmakart/pharmakart/internal/infrastructure/mysql"
	"github.com/pharmakart/pharmakart/internal/infrastructure/razorpay"
	"github.com/pharmakart/pharmakart/internal/infrastructure/redisstock"
	"github.com/pharmakart/pharmakart/internal/pkg/logging"
	httppresentation "github.com/pharmakart/pharmakart/internal/presentation/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config_load_failed", zap.Error(err))
	}

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	gatewayRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of payment gateway API calls.",
		},
		[]string{"endpoint", "outcome"},
	)
	gatewayDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of payment gateway API calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	ownershipReconciliations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ownership_reconciliations_total",
			Help: "Count of order ownership reassignments during payment flows.",
		},
		[]string{"operation"},
	)
	prometheus.MustRegister(httpRequests, httpDurations, gatewayRequests, gatewayDurations, ownershipReconciliations)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orderRepo, medicineRepo, paymentRepo, userDirectory, cleanup, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage_init_failed", zap.Error(err))
	}
	defer cleanup()

	gateway := razorpay.NewClient(cfg.GatewayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret,
		cfg.GatewayTimeout, razorpay.WithMetrics(gatewayRequests, gatewayDurations))
	verifier := razorpay.NewVerifier(cfg.RazorpayKeySecret)
	idGenerator := id.NewUUIDGenerator()

	orderService := apporder.NewService(orderRepo, medicineRepo, userDirectory, idGenerator)
	paymentService := apppayment.NewService(paymentRepo, orderRepo, userDirectory,
		gateway, verifier, idGenerator, cfg.RazorpayKeyID, ownershipReconciliations)

	handler := httppresentation.NewHandler(orderService, paymentService, logger, httpRequests, httpDurations)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("storage", cfg.Storage),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}

// buildStorage wires the repository backend selected by configuration.
// When REDIS_ADDR is set, the stock ledger gets a Redis admission guard in
// front of the durable store.
func buildStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (
	domorder.Repository,
	dommedicine.Repository,
	dompayment.Repository,
	domuser.Directory,
	func(),
	error,
) {
	cleanup := func() {}

	var (
		orderRepo     domorder.Repository
		medicineRepo  dommedicine.Repository
		paymentRepo   dompayment.Repository
		userDirectory domuser.Directory
	)

	switch cfg.Storage {
	case "mysql":
		db, err := mysql.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, nil, nil, nil, cleanup, err
		}
		cleanup = func() { _ = db.Close() }
		orderRepo = mysql.NewOrderRepository(db)
		medicineRepo = mysql.NewMedicineRepository(db)
		paymentRepo = mysql.NewPaymentRepository(db)
		userDirectory = mysql.NewUserDirectory(db)
	default:
		orderRepo = memory.NewOrderRepository()
		medicineRepo = memory.NewMedicineRepository()
		paymentRepo = memory.NewPaymentRepository()
		users := memory.NewUserDirectory()
		userDirectory = users
		if cfg.Env == "dev" {
			seedDemoData(ctx, users, medicineRepo, logger)
		}
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, nil, nil, cleanup, err
		}
		logger.Info("redis_stock_guard_enabled", zap.String("addr", cfg.RedisAddr))
		medicineRepo = redisstock.NewGuard(client, medicineRepo)
		prev := cleanup
		cleanup = func() {
			_ = client.Close()
			prev()
		}
	}

	return orderRepo, medicineRepo, paymentRepo, userDirectory, cleanup, nil
}

// seedDemoData loads a small catalog and a demo account so the in-memory
// backend is usable out of the box in development.
func seedDemoData(ctx context.Context, users *memory.UserDirectory, medicines dommedicine.Repository, logger *zap.Logger) {
	users.Add(&domuser.User{ID: "usr-demo", Email: "demo@pharmakart.dev", Name: "Demo User"})

	catalog := []*dommedicine.Medicine{
		{ID: "med-paracetamol-500", Name: "Paracetamol 500mg", Brand: "Calpol", Price: decimal.RequireFromString("25.50"), Stock: 100, Category: "analgesic"},
		{ID: "med-cetirizine-10", Name: "Cetirizine 10mg", Brand: "Zyrtec", Price: decimal.RequireFromString("32.00"), Stock: 80, Category: "antihistamine"},
		{ID: "med-amoxicillin-250", Name: "Amoxicillin 250mg", Brand: "Mox", Price: decimal.RequireFromString("78.25"), Stock: 40, Category: "antibiotic"},
	}
	for _, m := range catalog {
		if err := medicines.Save(ctx, m); err != nil {
			logger.Warn("demo_seed_failed", zap.String("medicine_id", m.ID), zap.Error(err))
		}
	}
	logger.Info("demo_data_seeded", zap.Int("medicines", len(catalog)), zap.String("user_email", "demo@pharmakart.dev"))
}
