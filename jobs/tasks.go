package jobs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendInvoiceEmail is the task type for dispatching invoice documents.
	TaskTypeSendInvoiceEmail = "invoice:email"
)

// SendInvoiceEmailPayload describes the information required to email an
// invoice document. MessageID makes delivery traceable across retries.
type SendInvoiceEmailPayload struct {
	MessageID     string `json:"message_id"`
	InvoiceNumber string `json:"invoice_number"`
	To            string `json:"to"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	PDF           []byte `json:"pdf"`
}

// NewSendInvoiceEmailTask constructs an Asynq task.
func NewSendInvoiceEmailTask(payload SendInvoiceEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendInvoiceEmail, data), nil
}

// Mailer transmits one email with an attached PDF.
type Mailer interface {
	Send(ctx context.Context, payload SendInvoiceEmailPayload) error
}

// SMTPConfig carries mail relay settings.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// SMTPMailer delivers mail through a plain SMTP relay (Mailpit in dev).
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer builds an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send transmits the message with the PDF as a MIME attachment.
func (m *SMTPMailer) Send(ctx context.Context, payload SendInvoiceEmailPayload) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	msg := buildMessage(m.cfg.From, payload)
	if err := smtp.SendMail(addr, nil, m.cfg.From, []string{payload.To}, msg); err != nil {
		return fmt.Errorf("jobs: smtp send %s: %w", payload.MessageID, err)
	}
	return nil
}

func buildMessage(from string, payload SendInvoiceEmailPayload) []byte {
	const boundary = "ledgerline-mime-boundary"
	var b strings.Builder
	fmt.Fprintf(&b, "Message-ID: <%s@ledgerline>\r\n", payload.MessageID)
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", payload.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", payload.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(payload.Body)
	b.WriteString("\r\n")

	if len(payload.PDF) > 0 {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: application/pdf\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", payload.InvoiceNumber+".pdf")
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(encodeBase64(payload.PDF))
		b.WriteString("\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

func encodeBase64(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	return b.String()
}

// NewSendInvoiceEmailHandler builds the Asynq handler around a Mailer.
func NewSendInvoiceEmailHandler(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendInvoiceEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := mailer.Send(ctx, payload); err != nil {
			logger.ErrorContext(ctx, "send invoice email",
				slog.String("message_id", payload.MessageID),
				slog.String("invoice", payload.InvoiceNumber),
				slog.Any("error", err))
			return err
		}
		logger.InfoContext(ctx, "invoice email sent",
			slog.String("message_id", payload.MessageID),
			slog.String("invoice", payload.InvoiceNumber),
			slog.String("to", payload.To))
		return nil
	}
}
