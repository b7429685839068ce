package channel

import (
	"fmt"
	"log/slog"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/notify"
)

// FromConfig builds the full sender set from configuration: the in-app
// inbox store plus one HTTP sender per configured outbound channel. The
// in-app sender is always created; it is also returned separately so the
// caller can serve inbox reads and close the store on shutdown.
func FromConfig(cfg *config.Config, logger *slog.Logger) ([]notify.Sender, *InAppSender, error) {
	inapp, err := NewInAppSender(cfg.InApp.DBPath, logger)
	if err != nil {
		return nil, nil, err
	}

	senders := []notify.Sender{inapp}

	for name, chCfg := range cfg.Channels {
		switch name {
		case "email":
			senders = append(senders, NewEmailSender(chCfg, logger))
		case "chat":
			senders = append(senders, NewChatSender(chCfg, logger))
		case "messenger":
			senders = append(senders, NewMessengerSender(chCfg, logger))
		default:
			inapp.Close()
			return nil, nil, fmt.Errorf("unknown channel %q in configuration", name)
		}
	}

	return senders, inapp, nil
}
