package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/frahmantamala/loan-servicing/api"
	"github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/auth"
	authpg "github.com/frahmantamala/loan-servicing/internal/auth/postgres"
	"github.com/frahmantamala/loan-servicing/internal/core/events"
	"github.com/frahmantamala/loan-servicing/internal/core/lock"
	uowpg "github.com/frahmantamala/loan-servicing/internal/core/uow/postgres"
	"github.com/frahmantamala/loan-servicing/internal/loan"
	"github.com/frahmantamala/loan-servicing/internal/notification"
	"github.com/frahmantamala/loan-servicing/internal/payment"
	paymentpg "github.com/frahmantamala/loan-servicing/internal/payment/postgres"
	"github.com/frahmantamala/loan-servicing/internal/paymentgateway"
	"github.com/frahmantamala/loan-servicing/internal/receipt"
	"github.com/frahmantamala/loan-servicing/internal/scoring"
	"github.com/frahmantamala/loan-servicing/internal/transport/middleware"
	"github.com/frahmantamala/loan-servicing/internal/transport/rest"
	userapi "github.com/frahmantamala/loan-servicing/internal/user"
	"github.com/frahmantamala/loan-servicing/pkg/logger"
)

const idempotencyTTL = 24 * time.Hour

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Redis    *redis.Client
	Router   *chi.Mux
	Logger   *slog.Logger
	shutdown []func()
}

func (d *Dependencies) Close() {
	for i := len(d.shutdown) - 1; i >= 0; i-- {
		d.shutdown[i]()
	}
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		deps.Close()
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Close()
	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger
	uow := uowpg.NewGormUoW(deps.Gorm)

	bus := events.NewEventBus(lg)

	// notifications: Redis list consumed by `worker notifications`, else an in-process pool
	var sender notification.Sender = notification.NewLogSender(lg)
	if cfg.Email.Enabled {
		sender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
	}
	var queue notification.Queue
	if deps.Redis != nil {
		queue = notification.NewRedisQueue(deps.Redis, cfg.Notification.QueueKey)
	} else {
		dispatcher := notification.NewDispatcher(sender, notification.DispatcherConfig{
			Workers:   cfg.Notification.Workers,
			QueueSize: cfg.Notification.QueueSize,
		}, lg)
		deps.shutdown = append(deps.shutdown, dispatcher.Shutdown)
		queue = dispatcher
	}
	notification.NewEventHandler(queue, lg).Register(bus)
	deps.shutdown = append(deps.shutdown, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bus.Drain(ctx); err != nil {
			lg.Warn("event handlers still running at shutdown", "error", err)
		}
	})

	// auth
	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authpg.NewRepository(deps.Gorm), tokens, cfg.Security.BCryptCost)

	// scoring
	var remote scoring.RemoteAPI
	if cfg.Scoring.URL != "" {
		remote = scoring.NewClient(scoring.ClientConfig{
			BaseURL:        cfg.Scoring.URL,
			PredictTimeout: cfg.Scoring.PredictTimeout,
			HealthTimeout:  cfg.Scoring.HealthTimeout,
		}, lg)
	}
	var fallback scoring.Scorer
	if cfg.Scoring.FallbackEnabled {
		fallback = scoring.NewHeuristic()
	}
	scorer := scoring.NewService(remote, fallback, lg)

	loanService := loan.NewService(uow, scorer, bus, cfg.Loan.DefaultInterestRate, lg)

	// payments
	var gateway payment.GatewayAPI
	if cfg.Stripe.SecretKey != "" {
		gateway = paymentgateway.NewStripeClient(paymentgateway.Config{
			SecretKey: cfg.Stripe.SecretKey,
			APIURL:    cfg.Stripe.APIURL,
			Timeout:   cfg.Stripe.Timeout,
		}, lg)
	} else {
		lg.Warn("stripe secret key not set; payment intents are disabled")
	}
	var locker lock.Locker = lock.NewKeyedMutex()
	if deps.Redis != nil {
		locker = lock.NewRedisLocker(deps.Redis)
	}
	paymentService := payment.NewService(payment.Dependencies{
		UoW:             uow,
		Gateway:         gateway,
		Locker:          locker,
		Pending:         paymentpg.NewPendingQueue(deps.DB),
		Receipts:        receipt.NewStore(cfg.Media.Root, cfg.Media.URL, ""),
		Publisher:       bus,
		DefaultCurrency: cfg.Stripe.DefaultCurrency,
	}, lg)

	opts := rest.Options{
		AllowedOrigins: middleware.ParseOrigins(cfg.Server.AllowedOrigins),
		MediaRoot:      cfg.Media.Root,
		MediaURL:       cfg.Media.URL,
	}
	if cfg.Server.ValidateRequests {
		contract, err := middleware.LoadContract(api.Spec)
		if err != nil {
			return err
		}
		opts.Contract = contract
	}
	if deps.Redis != nil {
		opts.Idempotency = middleware.Idempotency(deps.Redis, idempotencyTTL, lg)
	}

	var redisPing rest.Pinger
	if deps.Redis != nil {
		redisPing = rest.PingFunc(func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() })
	}

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Auth:    auth.NewHandler(authService),
		User:    userapi.NewHandler(userapi.NewService(uow, lg)),
		Loan:    loan.NewHandler(loanService),
		Payment: payment.NewHandler(paymentService),
		Scoring: scoring.NewHandler(scorer),
		Health: rest.NewHealthHandler(map[string]rest.Pinger{
			"postgres": deps.DB,
			"redis":    redisPing,
		}),
	}, opts, lg)

	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, gormDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps := &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Gorm:   gormDB,
		Router: chi.NewRouter(),
	}
	deps.shutdown = append(deps.shutdown, func() {
		if err := db.Close(); err != nil {
			lg.Error("Database close error", "error", err)
		}
	})

	rdb, err := initRedis(config.Redis, lg)
	if err != nil {
		deps.Close()
		return nil, err
	}
	if rdb != nil {
		deps.Redis = rdb
		deps.shutdown = append(deps.shutdown, func() { _ = rdb.Close() })
	}

	return deps, nil
}
