package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/jonathan/freight-doc-review/internal/resilience"
)

// ClientFactory hands out a model client bound to an API key.
type ClientFactory interface {
	ForKey(ctx context.Context, apiKey string) (Client, error)
}

// DefaultMaxClients bounds how many per-key clients a CachingFactory keeps open.
const DefaultMaxClients = 64

// NewClientFunc constructs a raw provider client.
type NewClientFunc func(ctx context.Context, config *Config, apiKey string) (Client, error)

// CachingFactory builds one resilient client per API key and reuses it across requests.
// Once maxClients keys are cached, the least recently used client is closed and dropped.
type CachingFactory struct {
	config     *Config
	executor   *resilience.Executor
	observer   Observer
	newClient  NewClientFunc
	maxClients int

	mu      sync.Mutex
	clients map[string]Client
	recent  []string // fingerprints, least recently used first
}

// FactoryOption configures a CachingFactory.
type FactoryOption func(*CachingFactory)

// WithObserver reports every model call to o.
func WithObserver(o Observer) FactoryOption {
	return func(f *CachingFactory) { f.observer = o }
}

// WithNewClientFunc replaces the provider constructor (used by tests).
func WithNewClientFunc(fn NewClientFunc) FactoryOption {
	return func(f *CachingFactory) { f.newClient = fn }
}

// WithMaxClients caps the number of cached clients. Values below 1 are ignored.
func WithMaxClients(n int) FactoryOption {
	return func(f *CachingFactory) {
		if n > 0 {
			f.maxClients = n
		}
	}
}

// NewCachingFactory creates a factory. A nil executor disables retries and circuit breaking.
func NewCachingFactory(config *Config, executor *resilience.Executor, opts ...FactoryOption) *CachingFactory {
	if config == nil {
		config = DefaultConfig()
	}
	f := &CachingFactory{
		config:    config,
		executor:  executor,
		newClient:  NewClient,
		maxClients: DefaultMaxClients,
		clients:    make(map[string]Client),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ForKey returns the cached client for apiKey, creating it on first use.
func (f *CachingFactory) ForKey(ctx context.Context, apiKey string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	key := keyFingerprint(apiKey)

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[key]; ok {
		f.touch(key)
		return c, nil
	}

	// The client outlives the request that created it.
	raw, err := f.newClient(context.WithoutCancel(ctx), f.config, apiKey)
	if err != nil {
		return nil, err
	}

	var c Client = raw
	if f.executor != nil || f.observer != nil {
		c = NewResilientClient(raw, f.executor, f.observer)
	}
	f.evictOldest()
	f.clients[key] = c
	f.recent = append(f.recent, key)
	return c, nil
}

// Len reports how many clients are cached.
func (f *CachingFactory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *CachingFactory) touch(key string) {
	for i, k := range f.recent {
		if k == key {
			f.recent = append(slices.Delete(f.recent, i, i+1), key)
			return
		}
	}
}

// evictOldest makes room for one more client. Caller holds f.mu.
func (f *CachingFactory) evictOldest() {
	for len(f.clients) >= f.maxClients && len(f.recent) > 0 {
		oldest := f.recent[0]
		f.recent = f.recent[1:]
		if c, ok := f.clients[oldest]; ok {
			if err := c.Close(); err != nil {
				log.Printf("[llm] failed to close evicted client: %v", err)
			}
			delete(f.clients, oldest)
		}
	}
}

// Close closes every cached client.
func (f *CachingFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for key, c := range f.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(f.clients, key)
	}
	f.recent = nil
	return errors.Join(errs...)
}

func keyFingerprint(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
