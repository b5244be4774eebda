package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/clearwatch/connectivity"
)

// DiscordConfig is the per-channel JSON config for Discord webhooks.
type DiscordConfig struct {
	// URL is the full webhook URL from the channel's integration settings.
	URL string `json:"url"`
	// Username overrides the webhook's display name when set.
	Username string `json:"username,omitempty"`
	// At most Burst messages are sent in any PerMS window. Discord allows
	// about 5 per 2 seconds per webhook; the defaults stay under that.
	Burst int `json:"burst,omitempty"`
	PerMS int `json:"per_ms,omitempty"`
}

// MaxDiscordContent is the most characters Discord accepts in one message.
const MaxDiscordContent = 2000

// DiscordFactory returns a ChannelFactory for Discord webhooks.
//
// Config example:
//
//	{"url": "https://discord.com/api/webhooks/123/abc"}
func DiscordFactory() ChannelFactory {
	return func(name string, config json.RawMessage, deps Deps) (Channel, error) {
		var cfg DiscordConfig
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("discord: parse config: %w", err)
		}
		if cfg.URL == "" {
			return nil, fmt.Errorf("discord: url is required")
		}
		if cfg.Burst <= 0 {
			cfg.Burst = 4
		}
		if cfg.PerMS <= 0 {
			cfg.PerMS = 2000
		}
		return newDiscordChannel(name, cfg, deps), nil
	}
}

// discordChannel posts to one Discord webhook.
type discordChannel struct {
	name    string
	config  DiscordConfig
	limiter *rate.Limiter
	post    connectivity.Handler
}

func newDiscordChannel(name string, cfg DiscordConfig, deps Deps) *discordChannel {
	base := connectivity.HTTPPost(deps.HTTPClient, cfg.URL, "application/json")
	return &discordChannel{
		name:    name,
		config:  cfg,
		limiter: spacedLimiter(cfg),
		post:    deps.chain("discord:" + name)(discordRateLimit(base)),
	}
}

// spacedLimiter releases one message every PerMS/Burst, so no PerMS window
// holds more than Burst messages.
func spacedLimiter(cfg DiscordConfig) *rate.Limiter {
	gap := time.Duration(cfg.PerMS) * time.Millisecond / time.Duration(cfg.Burst)
	return rate.NewLimiter(rate.Every(gap), 1)
}

func (c *discordChannel) Name() string { return c.name }

type discordPayload struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

func (c *discordChannel) Send(ctx context.Context, msg Message) error {
	if msg.Text == "" {
		return nil
	}
	if n := utf8.RuneCountInString(msg.Text); n > MaxDiscordContent {
		return &ErrSendFailed{Channel: c.name, Platform: "discord",
			Cause: fmt.Errorf("content is %d characters, limit %d", n, MaxDiscordContent)}
	}
	body, err := json.Marshal(discordPayload{Content: msg.Text, Username: c.config.Username})
	if err != nil {
		return &ErrSendFailed{Channel: c.name, Platform: "discord",
			Cause: fmt.Errorf("marshal: %w", err)}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &ErrSendFailed{Channel: c.name, Platform: "discord",
			Cause: fmt.Errorf("rate limiter: %w", err)}
	}
	if _, err := c.post(ctx, body); err != nil {
		return &ErrSendFailed{Channel: c.name, Platform: "discord", Cause: err}
	}
	return nil
}

// discordRateLimit fills ErrStatus.RetryAfter from the JSON body of a 429
// when the Retry-After header was missing.
func discordRateLimit(next connectivity.Handler) connectivity.Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		resp, err := next(ctx, payload)
		var status *connectivity.ErrStatus
		if errors.As(err, &status) && status.Code == http.StatusTooManyRequests && status.RetryAfter == 0 {
			var body struct {
				RetryAfter float64 `json:"retry_after"`
			}
			if json.NewDecoder(strings.NewReader(status.Body)).Decode(&body) == nil && body.RetryAfter > 0 {
				status.RetryAfter = time.Duration(body.RetryAfter * float64(time.Second))
			}
		}
		return resp, err
	}
}
