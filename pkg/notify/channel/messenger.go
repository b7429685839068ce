package channel

import (
	"context"
	"log/slog"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/notify"
	"atelier-hq/beacon/pkg/notify/template"
)

// MessengerSender delivers urgent notifications through the messaging-app
// gateway. The gateway bills per delivered message, so a failed attempt
// records no cost; the dispatcher only routes here for opted-in users.
type MessengerSender struct {
	client *providerClient
}

func NewMessengerSender(cfg config.ChannelConfig, logger *slog.Logger) *MessengerSender {
	return &MessengerSender{
		client: newProviderClient(notify.ChannelMessenger, cfg, logger),
	}
}

func (s *MessengerSender) Channel() notify.Channel { return notify.ChannelMessenger }

func (s *MessengerSender) ChargedOnAttempt() bool { return false }

func (s *MessengerSender) Deliver(ctx context.Context, userID string, content template.Rendered, meta notify.Metadata) (string, error) {
	payload := map[string]any{
		"user_id": userID,
		"body":    content.Body,
		"ref":     meta.NotificationID,
	}
	return s.client.post(ctx, "/v1/send", payload)
}
