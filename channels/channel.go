// Package channels delivers outbound notices to messaging platforms such as
// Discord webhooks, generic signed JSON webhooks, or the process log.
//
// Delivery itself goes through connectivity handlers, so every platform gets
// the same timeout, retry and circuit breaker behaviour:
//
//	reg := channels.NewRegistry(channels.WithLogger(logger))
//	ch, err := reg.Build("main", "discord", json.RawMessage(`{"url":"https://discord.com/api/webhooks/..."}`))
//	err = ch.Send(ctx, channels.Message{Text: "hello"})
package channels

import (
	"context"
	"encoding/json"
	"time"
)

// Message is a platform-neutral outbound message.
type Message struct {
	ID        string            `json:"id"`
	Channel   string            `json:"channel"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Channel is an outbound connection to a messaging platform.
type Channel interface {
	// Name returns the configured channel name (e.g. "primary").
	Name() string

	// Send delivers msg. It blocks until the platform accepted the message,
	// the delivery failed for good, or ctx is done.
	Send(ctx context.Context, msg Message) error
}

// ChannelFactory creates a Channel from a name and its per-platform JSON
// config.
type ChannelFactory func(name string, config json.RawMessage, deps Deps) (Channel, error)
