package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/ttacon/libphonenumber"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/wms-platform/audit-service/internal/domain"
)

// TwilioConfig holds the WhatsApp sender credentials
type TwilioConfig struct {
	AccountSID    string
	AuthToken     string
	WhatsAppFrom  string
	DefaultRegion string
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// WhatsAppChannel sends text messages through the Twilio WhatsApp API
type WhatsAppChannel struct {
	api    messageCreator
	from   string
	region string
}

// NewWhatsAppChannel creates a WhatsAppChannel
func NewWhatsAppChannel(cfg TwilioConfig) *WhatsAppChannel {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	region := cfg.DefaultRegion
	if region == "" {
		region = "IN"
	}
	return &WhatsAppChannel{api: client.Api, from: cfg.WhatsAppFrom, region: region}
}

func (c *WhatsAppChannel) Name() string { return "whatsapp" }

func (c *WhatsAppChannel) Send(ctx context.Context, to *domain.Identity, msg Message) error {
	if strings.TrimSpace(to.Phone) == "" {
		return ErrNoAddress
	}
	phone, err := NormalizePhone(to.Phone, c.region)
	if err != nil {
		return err
	}
	from, err := NormalizePhone(c.from, c.region)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + phone)
	params.SetFrom("whatsapp:" + from)
	params.SetBody(msg.Text)

	if _, err := c.api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	return nil
}

// NormalizePhone formats a number as E.164, reading national numbers in region
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:")
	num, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("invalid phone number %q: %w", raw, err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}
