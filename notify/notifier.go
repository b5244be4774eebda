package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/clearwatch/channels"
	"github.com/hazyhaar/clearwatch/idgen"
)

// Notifier sends rendered notices to a primary channel and, when configured,
// a secondary one.
type Notifier struct {
	primary   channels.Channel
	secondary channels.Channel
	limit     int
	now       func() time.Time
	newID     idgen.Generator
	logger    *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLimit sets the maximum characters per message.
func WithLimit(n int) Option {
	return func(nt *Notifier) { nt.limit = n }
}

// WithClock sets the clock used for report headers.
func WithClock(fn func() time.Time) Option {
	return func(nt *Notifier) { nt.now = fn }
}

// WithIDGenerator sets the generator for message IDs.
func WithIDGenerator(g idgen.Generator) Option {
	return func(nt *Notifier) { nt.newID = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(nt *Notifier) { nt.logger = l }
}

// NewNotifier creates a Notifier. secondary may be nil, in which case
// secondary notices go to primary.
func NewNotifier(primary, secondary channels.Channel, opts ...Option) *Notifier {
	n := &Notifier{
		primary:   primary,
		secondary: secondary,
		limit:     DefaultLimit,
		now:       time.Now,
		newID:     idgen.Message,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Delivery summarises one Notify call.
type Delivery struct {
	Chunks    int `json:"chunks"`
	Delivered int `json:"delivered"`
}

// Notify batches notices per destination and sends every chunk. It does not
// stop at the first failure: all chunks are attempted and the first error is
// returned.
func (n *Notifier) Notify(ctx context.Context, notices []Notice) (Delivery, error) {
	var primaryLines, secondaryLines []string
	for _, nt := range notices {
		if nt.Importance == Primary || n.secondary == nil {
			primaryLines = append(primaryLines, nt.Text)
		} else {
			secondaryLines = append(secondaryLines, nt.Text)
		}
	}

	header := Header(n.now())
	var d Delivery
	var firstErr error
	send := func(ch channels.Channel, lines []string) {
		for _, chunk := range Batch(header, lines, n.limit) {
			d.Chunks++
			msg := channels.Message{ID: n.newID(), Channel: ch.Name(), Text: chunk, Timestamp: n.now().UTC()}
			if err := ch.Send(ctx, msg); err != nil {
				n.logger.ErrorContext(ctx, "notify: send chunk",
					"channel", ch.Name(), "message_id", msg.ID, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			d.Delivered++
		}
	}
	if n.primary != nil {
		send(n.primary, primaryLines)
	}
	if n.secondary != nil {
		send(n.secondary, secondaryLines)
	}
	return d, firstErr
}
