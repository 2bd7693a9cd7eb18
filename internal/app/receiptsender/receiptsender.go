// Package receiptsender собирает воркер отправки писем-квитанций:
// подключение к RabbitMQ, SMTP транспорт и потребитель очереди.
package receiptsender

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/invoice-billing/internal/config"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/smtp"
	receiptservice "github.com/magabrotheeeer/invoice-billing/internal/services/receipt"
)

// App — воркер квитанций.
type App struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	sender *receiptservice.Sender
	logger *slog.Logger
}

// New инициализирует зависимости воркера.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitURL, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitExchange, rabbitmq.GetReceiptQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg, logger)
	sender := receiptservice.NewSender(transport, logger)

	return &App{
		conn:   conn,
		ch:     ch,
		sender: sender,
		logger: logger,
	}, nil
}

// Run запускает потребителя очереди и ждёт сигнала остановки.
func (a *App) Run(ctx context.Context) error {
	for _, q := range rabbitmq.GetReceiptQueues() {
		if err := rabbitmq.ConsumeMessages(ctx, a.ch, q.QueueName, a.sender.Handle); err != nil {
			a.logger.Error("failed to start consumer",
				slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("receipt sender shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
