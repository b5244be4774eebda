package channels

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/clearwatch/connectivity"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Signature-256"

// WebhookConfig is the per-channel JSON config for generic JSON webhooks.
type WebhookConfig struct {
	// URL receives one POST per message, the body being the JSON Message.
	URL string `json:"url"`
	// Secret, when set, signs each body in the X-Signature-256 header.
	Secret string `json:"secret,omitempty"`
}

// WebhookFactory returns a ChannelFactory for generic outbound webhooks.
//
// Config example:
//
//	{"url": "https://hooks.example.net/clears", "secret": "hmac_key"}
func WebhookFactory() ChannelFactory {
	return func(name string, config json.RawMessage, deps Deps) (Channel, error) {
		var cfg WebhookConfig
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("webhook: parse config: %w", err)
		}
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook: url is required")
		}
		return newWebhookChannel(name, cfg, deps), nil
	}
}

type webhookChannel struct {
	name string
	post connectivity.Handler
}

func newWebhookChannel(name string, cfg WebhookConfig, deps Deps) *webhookChannel {
	var opts []connectivity.RequestOption
	if cfg.Secret != "" {
		secret := cfg.Secret
		opts = append(opts, func(req *http.Request, payload []byte) {
			req.Header.Set(SignatureHeader, Sign(secret, payload))
		})
	}
	base := connectivity.HTTPPost(deps.HTTPClient, cfg.URL, "application/json", opts...)
	return &webhookChannel{
		name: name,
		post: deps.chain("webhook:" + name)(base),
	}
}

func (c *webhookChannel) Name() string { return c.name }

func (c *webhookChannel) Send(ctx context.Context, msg Message) error {
	msg.Channel = c.name
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return &ErrSendFailed{Channel: c.name, Platform: "webhook",
			Cause: fmt.Errorf("marshal: %w", err)}
	}
	if _, err := c.post(ctx, body); err != nil {
		return &ErrSendFailed{Channel: c.name, Platform: "webhook", Cause: err}
	}
	return nil
}

// Sign returns the X-Signature-256 value for body: "sha256=" followed by
// the hex HMAC-SHA256 under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign. The "sha256=" prefix is
// optional. An empty secret accepts everything.
func Verify(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), decoded)
}
