package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// LogConfig is the per-channel JSON config for the log platform.
type LogConfig struct {
	// Level is "debug", "info" (default) or "warn".
	Level string `json:"level,omitempty"`
}

// LogFactory returns a ChannelFactory whose channels write every message to
// the logger instead of a remote platform. Dry runs use it.
func LogFactory() ChannelFactory {
	return func(name string, config json.RawMessage, deps Deps) (Channel, error) {
		var cfg LogConfig
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("log: parse config: %w", err)
		}
		level := slog.LevelInfo
		switch cfg.Level {
		case "", "info":
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		default:
			return nil, fmt.Errorf("log: unknown level %q", cfg.Level)
		}
		return &logChannel{name: name, level: level, logger: deps.Logger}, nil
	}
}

type logChannel struct {
	name   string
	level  slog.Level
	logger *slog.Logger
}

func (c *logChannel) Name() string { return c.name }

func (c *logChannel) Send(ctx context.Context, msg Message) error {
	c.logger.Log(ctx, c.level, "notice",
		"channel", c.name,
		"id", msg.ID,
		"text", msg.Text)
	return nil
}
