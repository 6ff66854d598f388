package notify

import (
	"strings"

	"github.com/wolfman30/consultation-booking/pkg/logging"
)

// Provider names accepted by NewEmailSender.
const (
	ProviderAuto     = "auto"
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
	ProviderStub     = "stub"
)

type SenderConfig struct {
	Provider string
	SendGrid SendGridConfig
	SES      SESConfig
}

// NewEmailSender picks the outbound provider. "auto" prefers SendGrid, then
// SES when a client is supplied, and falls back to the logging stub whenever
// the chosen provider is missing credentials.
func NewEmailSender(cfg SenderConfig, ses SESAPI, logger *logging.Logger) EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderAuto
	}

	useSendGrid := cfg.SendGrid.APIKey != "" && cfg.SendGrid.FromEmail != ""
	useSES := ses != nil && cfg.SES.FromEmail != ""

	switch {
	case (provider == ProviderSendGrid || provider == ProviderAuto) && useSendGrid:
		logger.Info("sendgrid email sender initialized")
		return NewSendGridSender(cfg.SendGrid, logger)
	case (provider == ProviderSES || provider == ProviderAuto) && useSES:
		logger.Info("ses email sender initialized")
		return NewSESSender(ses, cfg.SES, logger)
	}
	if provider != ProviderStub {
		logger.Warn("email notifications disabled, provider not configured", "provider", provider)
	}
	return NewStubEmailSender(logger)
}
