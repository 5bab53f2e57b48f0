package session

import (
	"sync"
	"time"
)

// Factory constructs ProviderClients bound either to the long-lived client
// process or to a single inbound request. Both variants expose the same
// surface so application code never branches on where it runs.
type Factory struct {
	api         API
	decoder     TokenDecoder
	logger      Logger
	refreshLead time.Duration

	mu     sync.Mutex
	client *ClientBoundProvider
}

// FactoryOption customizes factory construction.
type FactoryOption func(*Factory)

// WithFactoryLogger overrides the default logger for derived clients.
func WithFactoryLogger(logger Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRefreshLead sets how long before expiry the client-bound provider
// refreshes its tokens.
func WithRefreshLead(lead time.Duration) FactoryOption {
	return func(f *Factory) {
		if lead > 0 {
			f.refreshLead = lead
		}
	}
}

// NewFactory wires a factory over the low-level provider API and a token
// decoder.
func NewFactory(providerAPI API, decoder TokenDecoder, opts ...FactoryOption) *Factory {
	f := &Factory{
		api:         providerAPI,
		decoder:     decoder,
		logger:      defLogger{},
		refreshLead: time.Minute,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// ForClient returns the process-wide client-bound provider, creating it on
// first use. The instance is a stable singleton for the life of the process,
// matching the one auth stream a client session observes.
func (f *Factory) ForClient() *ClientBoundProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil {
		f.client = newClientBoundProvider(f.api, f.decoder, f.logger, f.refreshLead)
	}
	return f.client
}

// ForRequest returns a provider seeded with the given session, scoped to one
// request. Any token mutation it performs is reported through onRefresh so
// the caller can re-issue cookies; a nil session on that callback means the
// pair should be cleared. Nothing about the returned client may outlive the
// request.
func (f *Factory) ForRequest(seed *Session, onRefresh func(*Session) error) *RequestBoundProvider {
	return newRequestBoundProvider(f.api, f.decoder, f.logger, seed, onRefresh)
}
