package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"atelier-hq/beacon/pkg/config"
	"atelier-hq/beacon/pkg/notify"
)

// providerClient is the shared HTTP plumbing for channel senders that call
// a provider REST API: connection pooling, request pacing, bounded
// timeouts, and transient/permanent failure classification. The concrete
// wire payloads stay in the individual senders.
type providerClient struct {
	channel notify.Channel
	cfg     config.ChannelConfig
	client  *http.Client
	pacer   *rate.Limiter
	log     *slog.Logger
}

func newProviderClient(ch notify.Channel, cfg config.ChannelConfig, logger *slog.Logger) *providerClient {
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultChannelTimeout
	}

	var pacer *rate.Limiter
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		pacer = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	return &providerClient{
		channel: ch,
		cfg:     cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		pacer: pacer,
		log:   logger.With("component", "notify.channel."+string(ch)),
	}
}

// post sends a JSON payload to the provider and returns the provider
// message ID from the response body.
func (c *providerClient) post(ctx context.Context, path string, payload any) (string, error) {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return "", &notify.TransientDeliveryError{
				Channel: c.channel,
				Message: "pacing wait cancelled",
				Cause:   err,
			}
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &notify.PermanentDeliveryError{
			Channel: c.channel,
			Message: "failed to encode request payload",
			Cause:   err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", &notify.PermanentDeliveryError{
			Channel: c.channel,
			Message: "failed to build request",
			Cause:   err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Network errors and timeouts are worth retrying.
		return "", &notify.TransientDeliveryError{
			Channel: c.channel,
			Message: "request failed",
			Cause:   err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", &notify.TransientDeliveryError{
			Channel: c.channel,
			Message: "failed to read response",
			Cause:   err,
		}
	}

	return c.classify(resp.StatusCode, respBody)
}

// classify maps a provider response to a message ID or a typed delivery
// error. 5xx, 408, and 429 are transient; every other non-2xx status is a
// content or addressing problem retrying cannot fix.
func (c *providerClient) classify(status int, body []byte) (string, error) {
	switch {
	case status >= 200 && status < 300:
		var parsed struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil || parsed.ID == "" {
			// Accepted but no usable ID; treat the send as delivered.
			return "", nil
		}
		return parsed.ID, nil

	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return "", &notify.TransientDeliveryError{
			Channel:    c.channel,
			StatusCode: status,
			Message:    fmt.Sprintf("provider returned %d: %s", status, truncate(body, 200)),
		}

	default:
		return "", &notify.PermanentDeliveryError{
			Channel: c.channel,
			Message: fmt.Sprintf("provider rejected request with %d: %s", status, truncate(body, 200)),
		}
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
