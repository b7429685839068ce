package channel

import (
	"context"
	"log/slog"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/notify"
	"atelier-hq/beacon/pkg/notify/template"
)

// ChatSender posts notifications into the team chat workspace. Chat
// messages are free under the current provider plan, so failed attempts
// carry no usage cost.
type ChatSender struct {
	client *providerClient
}

func NewChatSender(cfg config.ChannelConfig, logger *slog.Logger) *ChatSender {
	return &ChatSender{
		client: newProviderClient(notify.ChannelChat, cfg, logger),
	}
}

func (s *ChatSender) Channel() notify.Channel { return notify.ChannelChat }

func (s *ChatSender) ChargedOnAttempt() bool { return false }

func (s *ChatSender) Deliver(ctx context.Context, userID string, content template.Rendered, meta notify.Metadata) (string, error) {
	text := content.Body
	if content.Subject != "" {
		text = "*" + content.Subject + "*\n" + content.Body
	}
	payload := map[string]any{
		"user_id": userID,
		"text":    text,
		"ref":     meta.NotificationID,
	}
	return s.client.post(ctx, "/v1/chat.postMessage", payload)
}
