package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"salepoint/internal/config"

	"go.uber.org/zap"
)

const twilioBaseURL = "https://api.twilio.com"

// TwilioSMS sends SMS through the Twilio messages API. The channel is
// gated by its own enabled flag and credentials; a disabled channel
// fails synchronously without any network call.
type TwilioSMS struct {
	cfg     config.SMSConfig
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewTwilioSMS creates the SMS channel from config
func NewTwilioSMS(cfg config.SMSConfig, client *http.Client, logger *zap.Logger) *TwilioSMS {
	if client == nil {
		client = http.DefaultClient
	}
	return &TwilioSMS{cfg: cfg, client: client, baseURL: twilioBaseURL, logger: logger}
}

func (s *TwilioSMS) SendSMS(ctx context.Context, phoneNumber, message string) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("%w: sms", ErrChannelDisabled)
	}
	if s.cfg.AccountSID == "" || s.cfg.AuthToken == "" || s.cfg.FromNumber == "" {
		return fmt.Errorf("%w: sms", ErrChannelNotConfigured)
	}

	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}

	s.logger.Debug("SMS sent", zap.String("to", phoneNumber))
	return nil
}
