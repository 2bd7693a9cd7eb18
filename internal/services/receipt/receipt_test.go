package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/invoice-billing/internal/lib/smtp"
	"github.com/magabrotheeeer/invoice-billing/internal/models"
)

type fakeWriter struct {
	buf    bytes.Buffer
	closed bool
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *fakeWriter) Close() error                { w.closed = true; return nil }

type fakeClient struct {
	from    string
	to      string
	writer  *fakeWriter
	quitted bool
}

func (c *fakeClient) Mail(from string) error { c.from = from; return nil }
func (c *fakeClient) Rcpt(to string) error   { c.to = to; return nil }
func (c *fakeClient) Data() (io.WriteCloser, error) {
	c.writer = &fakeWriter{}
	return c.writer, nil
}
func (c *fakeClient) Quit() error  { c.quitted = true; return nil }
func (c *fakeClient) Close() error { return nil }

type fakeDialer struct {
	client  *fakeClient
	connErr error
}

func (d *fakeDialer) Connect() (smtp.Client, error) {
	if d.connErr != nil {
		return nil, d.connErr
	}
	return d.client, nil
}

func (d *fakeDialer) GetSMTPUser() string { return "billing@example.com" }

func testEvent() models.ReceiptEvent {
	return models.ReceiptEvent{
		UserUID:     "user-1",
		Email:       "alice@example.com",
		Tier:        models.TierPremium,
		Amount:      99900,
		CompletedAt: time.Date(2024, time.March, 10, 14, 30, 0, 0, time.UTC),
	}
}

func newTestSender(dialer smtp.Dialer) *Sender {
	return NewSender(dialer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandle_SendsReceipt(t *testing.T) {
	client := &fakeClient{}
	sender := newTestSender(&fakeDialer{client: client})

	body, err := json.Marshal(testEvent())
	require.NoError(t, err)
	require.NoError(t, sender.Handle(body))

	assert.Equal(t, "billing@example.com", client.from)
	assert.Equal(t, "alice@example.com", client.to)
	assert.True(t, client.quitted)
	require.NotNil(t, client.writer)
	assert.True(t, client.writer.closed)
	assert.Contains(t, client.writer.buf.String(), "999.00")
	assert.Contains(t, client.writer.buf.String(), models.TierPremium)
}

func TestHandle_MalformedMessageIsNotRequeued(t *testing.T) {
	sender := newTestSender(&fakeDialer{client: &fakeClient{}})
	assert.NoError(t, sender.Handle([]byte("{not json")))
}

func TestHandle_MissingEmailIsSkipped(t *testing.T) {
	event := testEvent()
	event.Email = ""
	body, err := json.Marshal(event)
	require.NoError(t, err)

	sender := newTestSender(&fakeDialer{client: &fakeClient{}})
	assert.NoError(t, sender.Handle(body))
}

func TestHandle_ConnectErrorIsRequeued(t *testing.T) {
	sender := newTestSender(&fakeDialer{connErr: errors.New("smtp down")})
	body, err := json.Marshal(testEvent())
	require.NoError(t, err)
	assert.Error(t, sender.Handle(body))
}
