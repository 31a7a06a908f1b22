package driveauth

import (
	"github.com/redis/go-redis/v9"

	"github.com/ritasahaa/driveauth/store"
)

// Builder assembles a [Manager]. Construction is allocation-only; nothing
// touches the network or the signal backend until the manager is used.
type Builder struct {
	config Config
	api    APIClient
	redis  *redis.Client
	signal store.LogoutSignal
	sink   EventSink
	tab    *store.TabStore

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL points the built-in HTTP client at the backend API. Ignored
// when a custom client is supplied with [Builder.WithAPIClient].
func (b *Builder) WithBaseURL(url string) *Builder {
	b.config.API.BaseURL = url
	return b
}

// WithAPIClient substitutes the backend client.
func (b *Builder) WithAPIClient(api APIClient) *Builder {
	b.api = api
	return b
}

// WithRedis enables the Redis-backed cross-tab logout signal.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithLogoutSignal substitutes the logout broadcast implementation. Takes
// precedence over [Builder.WithRedis].
func (b *Builder) WithLogoutSignal(signal store.LogoutSignal) *Builder {
	b.signal = signal
	return b
}

// WithEventSink receives the lifecycle event stream.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// WithTabStore substitutes the per-tab store, letting a host re-attach to a
// store it hydrated itself.
func (b *Builder) WithTabStore(tab *store.TabStore) *Builder {
	b.tab = tab
	return b
}

// Build validates the configuration and assembles the Manager. A Builder is
// single-use.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderReused
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	api := b.api
	if api == nil {
		if b.config.API.BaseURL == "" {
			return nil, ErrAPIClientMissing
		}
		api = NewHTTPClient(b.config.API.BaseURL, b.config.API.Timeout)
	}

	signal := b.signal
	if signal == nil {
		if b.redis != nil {
			signal = store.NewRedisLogoutSignal(b.redis, b.config.Signal.RedisPrefix, b.config.Signal.TTL)
		} else {
			signal = store.NoopLogoutSignal{}
		}
	}

	tab := b.tab
	if tab == nil {
		tab = store.NewTabStore()
	}

	m := &Manager{
		cfg:     b.config,
		api:     api,
		tab:     tab,
		signal:  signal,
		events:  newEventDispatcher(b.config.Events, b.sink),
		metrics: NewMetrics(b.config.Metrics),
		phase:   PhaseUninitialized,
	}
	m.validator = &sessionValidator{tab: tab, api: api, cfg: b.config}

	b.built = true
	return m, nil
}
