// Package smtp реализует SMTP транспорт со STARTTLS для отправки писем-квитанций.
package smtp

import "io"

// Client описывает минимальный контракт SMTP клиента, нужный отправителю писем.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer устанавливает соединение с SMTP сервером.
type Dialer interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
