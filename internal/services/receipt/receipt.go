// Package receipt отправляет письма-квитанции по событиям об успешных платежах.
package receipt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/invoice-billing/internal/lib/sl"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/smtp"
	"github.com/magabrotheeeer/invoice-billing/internal/models"
)

// Sender превращает событие из очереди в письмо-квитанцию.
type Sender struct {
	dialer smtp.Dialer
	log    *slog.Logger
}

// NewSender создает новый экземпляр Sender.
func NewSender(dialer smtp.Dialer, log *slog.Logger) *Sender {
	return &Sender{dialer: dialer, log: log}
}

// Handle — обработчик сообщения очереди. Ошибка приводит к requeue,
// поэтому возвращается только на сбоях, которые имеет смысл повторять.
func (s *Sender) Handle(body []byte) error {
	const op = "receipt.Handle"

	var event models.ReceiptEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Битое сообщение не станет валидным после requeue.
		s.log.Error("failed to unmarshal receipt event", sl.Err(err))
		return nil
	}
	if event.Email == "" {
		s.log.Warn("receipt event without email, skipping",
			slog.String("user_uid", event.UserUID))
		return nil
	}

	if err := s.send(event); err != nil {
		s.log.Error("failed to send receipt",
			slog.String("user_uid", event.UserUID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("receipt sent",
		slog.String("user_uid", event.UserUID),
		slog.String("email", event.Email))
	return nil
}

func (s *Sender) send(event models.ReceiptEvent) error {
	client, err := s.dialer.Connect()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	from := s.dialer.GetSMTPUser()
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(event.Email); err != nil {
		return err
	}

	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write([]byte(buildMessage(from, event))); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// buildMessage собирает тело письма с заголовками.
func buildMessage(from string, event models.ReceiptEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", event.Email))
	b.WriteString("Subject: Payment receipt\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(fmt.Sprintf("Your payment of %.2f for the %s plan was received on %s.\r\n",
		float64(event.Amount)/100, event.Tier, event.CompletedAt.Format("2006-01-02 15:04")))
	b.WriteString("Thank you for staying with us.\r\n")
	return b.String()
}
