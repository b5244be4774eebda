package channels

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/clearwatch/connectivity"
)

// Deps are the shared resources handed to every ChannelFactory.
type Deps struct {
	Logger     *slog.Logger
	HTTPClient *http.Client
	Delivery   Delivery
}

// Delivery tunes the connectivity chain wrapped around HTTP platforms.
type Delivery struct {
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	Backoff          time.Duration `yaml:"backoff"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerReset     time.Duration `yaml:"breaker_reset"`
	// AllowPrivateTargets lets webhooks point at loopback and private
	// networks. Off by default.
	AllowPrivateTargets bool `yaml:"allow_private_targets"`
}

// DefaultDelivery returns the delivery settings used when none are given.
func DefaultDelivery() Delivery {
	return Delivery{
		Timeout:          10 * time.Second,
		MaxRetries:       3,
		Backoff:          time.Second,
		BreakerThreshold: 5,
		BreakerReset:     time.Minute,
	}
}

// chain builds the middleware stack for one destination.
func (d Deps) chain(destination string) connectivity.HandlerMiddleware {
	cfg := d.Delivery
	logger := d.Logger
	cb := connectivity.NewCircuitBreaker(
		connectivity.WithBreakerThreshold(cfg.BreakerThreshold),
		connectivity.WithBreakerResetTimeout(cfg.BreakerReset),
		connectivity.WithBreakerOnChange(func(from, to connectivity.BreakerState) {
			logger.Warn("delivery breaker state changed",
				"destination", destination, "from", from.String(), "to", to.String())
		}),
	)
	return connectivity.Chain(
		connectivity.Recovery(logger),
		connectivity.WithCircuitBreaker(cb, destination),
		connectivity.WithRetry(cfg.MaxRetries, cfg.Backoff, logger),
		connectivity.Logging(logger, destination),
		connectivity.Timeout(cfg.Timeout),
	)
}

// Registry maps platform names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ChannelFactory
	deps      Deps
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger handed to channels.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.deps.Logger = l }
}

// WithHTTPClient sets the HTTP client used by HTTP platforms.
func WithHTTPClient(c *http.Client) RegistryOption {
	return func(r *Registry) { r.deps.HTTPClient = c }
}

// WithDelivery overrides the default delivery settings.
func WithDelivery(d Delivery) RegistryOption {
	return func(r *Registry) { r.deps.Delivery = d }
}

// NewRegistry returns a Registry with the built-in platforms registered:
// "discord", "webhook" and "log".
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[string]ChannelFactory),
		deps: Deps{
			Logger:     slog.Default(),
			HTTPClient: &http.Client{Timeout: 30 * time.Second},
			Delivery:   DefaultDelivery(),
		},
	}
	for _, o := range opts {
		o(r)
	}
	r.Register("discord", DiscordFactory())
	r.Register("webhook", WebhookFactory())
	r.Register("log", LogFactory())
	return r
}

// Register adds or replaces the factory for a platform.
func (r *Registry) Register(platform string, f ChannelFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[platform] = f
}

// Platforms lists the registered platform names, sorted.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for p := range r.factories {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Build creates the channel called name on platform.
func (r *Registry) Build(name, platform string, config json.RawMessage) (Channel, error) {
	r.mu.RLock()
	f, ok := r.factories[platform]
	r.mu.RUnlock()
	if !ok {
		return nil, &ErrNoPlatformFactory{Channel: name, Platform: platform}
	}
	if len(config) == 0 {
		config = json.RawMessage(`{}`)
	}
	return f(name, config, r.deps)
}
