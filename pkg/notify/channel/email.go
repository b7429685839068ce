package channel

import (
	"context"
	"log/slog"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/notify"
	"atelier-hq/beacon/pkg/notify/template"
)

// EmailSender delivers notifications through a transactional email
// provider. Email is billed per API call, so a failed attempt is still a
// charged attempt.
type EmailSender struct {
	client *providerClient
}

func NewEmailSender(cfg config.ChannelConfig, logger *slog.Logger) *EmailSender {
	return &EmailSender{
		client: newProviderClient(notify.ChannelEmail, cfg, logger),
	}
}

func (s *EmailSender) Channel() notify.Channel { return notify.ChannelEmail }

func (s *EmailSender) ChargedOnAttempt() bool { return true }

func (s *EmailSender) Deliver(ctx context.Context, userID string, content template.Rendered, meta notify.Metadata) (string, error) {
	payload := map[string]any{
		"user_id":  userID,
		"subject":  content.Subject,
		"body":     content.Body,
		"ref":      meta.NotificationID,
		"category": string(meta.Kind),
	}
	return s.client.post(ctx, "/v1/messages", payload)
}
