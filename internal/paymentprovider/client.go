package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/magabrotheeeer/invoice-billing/internal/config"
)

// ErrGatewayUnavailable возвращается после исчерпания повторов на сетевых
// ошибках и ответах 5xx.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Client клиент платёжного шлюза.
type Client struct {
	apiKey     string
	apiURL     string
	maxRetries int
	httpClient *http.Client
}

// NewClient создаёт новый клиент шлюза из конфига.
func NewClient(cfg config.Gateway) *Client {
	retries := cfg.GatewayMaxRetries
	if retries <= 0 {
		retries = 3
	}
	timeout := cfg.GatewayTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     cfg.GatewayAPIKey,
		apiURL:     cfg.GatewayAPIURL,
		maxRetries: retries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doWithRetry выполняет запрос с экспоненциальной выдержкой между повторами.
// Ответы 4xx (включая 429) не повторяются: повтор не изменит результат,
// а на 429 шлюз прямо просит снизить частоту.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body any, out any) error {
	const op = "paymentprovider.doWithRetry"

	var lastErr error
	delay := 500 * time.Millisecond
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", op, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			err = json.NewDecoder(resp.Body).Decode(out)
			closeErr := resp.Body.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if closeErr != nil {
				return fmt.Errorf("%s: %w", op, closeErr)
			}
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			_ = resp.Body.Close()
			return fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
		default:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status: %s", resp.Status)
		}
	}

	return fmt.Errorf("%s: %w: %v", op, ErrGatewayUnavailable, lastErr)
}

// CreateInvoice создаёт счёт на оплату в шлюзе и возвращает его
// идентификаторы и ссылку на оплату.
func (c *Client) CreateInvoice(ctx context.Context, reqParams CreateInvoiceRequest) (*CreateInvoiceResponse, error) {
	var invoiceResp CreateInvoiceResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/invoices", reqParams, &invoiceResp); err != nil {
		return nil, err
	}
	return &invoiceResp, nil
}

// ListTransactions возвращает список транзакций шлюза.
func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	var listResp listTransactionsResponse
	if err := c.doWithRetry(ctx, http.MethodGet, "/transactions", nil, &listResp); err != nil {
		return nil, err
	}
	return listResp.Transactions, nil
}
