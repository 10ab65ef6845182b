package notification

import (
	"context"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/wms-platform/audit-service/internal/domain"
)

// SMTPConfig holds the outbound mail server settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// EmailChannel sends HTML mail over SMTP
type EmailChannel struct {
	from string
	send func(...*gomail.Message) error
}

// NewEmailChannel creates an EmailChannel. From defaults to the SMTP user.
func NewEmailChannel(cfg SMTPConfig) *EmailChannel {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &EmailChannel{from: from, send: dialer.DialAndSend}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, to *domain.Identity, msg Message) error {
	address := strings.TrimSpace(to.Email)
	if address == "" {
		return ErrNoAddress
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetAddressHeader("To", address, to.Name)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	return c.send(m)
}
