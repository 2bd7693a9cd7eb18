// Package invoicebilling собирает основное приложение: хранилище, кеш,
// платёжный шлюз, очередь квитанций и HTTP-сервер с маршрутами.
package invoicebilling

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/invoice-billing/internal/cache"
	"github.com/magabrotheeeer/invoice-billing/internal/config"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
	"github.com/magabrotheeeer/invoice-billing/internal/migrations"
	"github.com/magabrotheeeer/invoice-billing/internal/models"
	"github.com/magabrotheeeer/invoice-billing/internal/paymentprovider"
	adminservice "github.com/magabrotheeeer/invoice-billing/internal/services/admin"
	authservice "github.com/magabrotheeeer/invoice-billing/internal/services/auth"
	invoiceservice "github.com/magabrotheeeer/invoice-billing/internal/services/invoice"
	paymentservice "github.com/magabrotheeeer/invoice-billing/internal/services/payment"
	subservice "github.com/magabrotheeeer/invoice-billing/internal/services/subscription"
	"github.com/magabrotheeeer/invoice-billing/internal/storage/repository"
)

// App — основное приложение биллинга.
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *repository.Storage
	rabbitConn *amqp.Connection
	rabbitCh   *amqp.Channel
}

// receiptQueue публикует события о платежах в exchange квитанций.
type receiptQueue struct {
	ch       *amqp.Channel
	exchange string
}

func (q *receiptQueue) PublishReceipt(event models.ReceiptEvent) error {
	return rabbitmq.PublishMessage(q.ch, q.exchange, rabbitmq.RoutingKeyPaymentCompleted, event)
}

// New инициализирует все зависимости приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	tokenMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	gatewayClient := paymentprovider.NewClient(cfg.Gateway)
	finder := paymentprovider.NewTransactionFinder(gatewayClient, cacheRedis, cfg.GatewayCacheTTL)

	// Очередь квитанций опциональна: без брокера платежи работают,
	// письма просто не отправляются.
	var (
		rabbitConn *amqp.Connection
		rabbitCh   *amqp.Channel
		receipts   paymentservice.ReceiptPublisher
	)
	if cfg.RabbitURL != "" {
		rabbitConn, err = rabbitmq.Connect(cfg.RabbitURL, 5, 2*time.Second)
		if err != nil {
			return nil, err
		}
		rabbitCh, err = rabbitmq.SetupChannel(rabbitConn, cfg.RabbitExchange, rabbitmq.GetReceiptQueues())
		if err != nil {
			_ = rabbitConn.Close()
			return nil, err
		}
		receipts = &receiptQueue{ch: rabbitCh, exchange: cfg.RabbitExchange}
	} else {
		logger.Warn("rabbit_url is empty, receipt emails are disabled")
	}

	subscriptionService := subservice.New(db, logger)
	authService := authservice.New(db, tokenMaker, logger)
	paymentService := paymentservice.New(db, db, subscriptionService, gatewayClient, finder, receipts, logger)
	invoiceService := invoiceservice.New(db, subscriptionService, logger)
	adminService := adminservice.New(db, subscriptionService, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Auth:         authService,
		Subscription: subscriptionService,
		Payment:      paymentService,
		Invoice:      invoiceService,
		Admin:        adminService,
		TokenMaker:   tokenMaker,
		WebhookKey:   cfg.GatewayWebhookSecret,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		rabbitConn: rabbitConn,
		rabbitCh:   rabbitCh,
	}, nil
}

// Run запускает HTTP-сервер и ждёт сигнала остановки.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.rabbitCh != nil {
		if err := a.rabbitCh.Close(); err != nil {
			a.logger.Error("failed to close rabbit channel", sl.Err(err))
		}
	}
	if a.rabbitConn != nil {
		if err := a.rabbitConn.Close(); err != nil {
			a.logger.Error("failed to close rabbit connection", sl.Err(err))
		}
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
