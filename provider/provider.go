package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Provider is the interface every LLM connector implements. Unlike a
// general chat-completion gateway, every call this engine makes wants a
// single structured JSON object back (an intent classification, an
// entity set, or a verbalized draft) — so the interface is narrowed to
// one operation instead of exposing raw chat/stream/embeddings surface.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic", "stub").
	Name() string

	// Complete sends one structured-completion request and returns the
	// raw text response for the caller to parse/verify.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// HealthCheck returns the current health status.
	HealthCheck(ctx context.Context) HealthStatus
}

// Operation identifies which detection/verbalization concern a request
// belongs to, so routing and metrics can be broken down per operation.
type Operation string

const (
	OpIntent        Operation = "intent"
	OpEntity        Operation = "entity"
	OpVerbalization Operation = "verbalization"
)

// Request is one structured-completion call.
type Request struct {
	Operation    Operation
	SystemPrompt string
	UserPrompt   string
	Model        string
	MaxTokens    int
	Temperature  float64
}

// Response is the raw text a provider returned for a Request.
type Response struct {
	Text       string
	Model      string
	TokensUsed int
	Latency    time.Duration
}

// HealthStatus represents a provider's health state.
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency_ms"`
	LastCheck time.Time     `json:"last_check"`
	Error     string        `json:"error,omitempty"`
}

// ProviderConfig holds configuration for a provider connector.
type ProviderConfig struct {
	Name       string            `json:"name"`
	BaseURL    string            `json:"base_url"`
	APIKey     string            `json:"-"` // never serialized
	Models     []string          `json:"models"`
	Headers    map[string]string `json:"headers,omitempty"`
	Timeout    time.Duration     `json:"timeout"`
	MaxRetries int               `json:"max_retries"`
}

// Registry manages all registered provider connectors.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	health    map[string]HealthStatus
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		health:    make(map[string]HealthStatus),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// HealthCheckAll runs health checks on all providers concurrently.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	r.mu.RLock()
	providers := make(map[string]Provider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	r.mu.RUnlock()

	results := make(map[string]HealthStatus)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, p := range providers {
		wg.Add(1)
		go func(n string, prov Provider) {
			defer wg.Done()
			status := prov.HealthCheck(ctx)
			mu.Lock()
			results[n] = status
			mu.Unlock()
		}(name, p)
	}
	wg.Wait()

	r.mu.Lock()
	r.health = results
	r.mu.Unlock()

	return results
}

// LastHealth returns the most recent HealthCheckAll snapshot.
func (r *Registry) LastHealth() map[string]HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]HealthStatus, len(r.health))
	for k, v := range r.health {
		out[k] = v
	}
	return out
}

// Route returns the provider registered under a route name ("primary",
// "fallback", "stub"). It does not take the operation into account.
func (r *Registry) Route(route string) (Provider, error) {
	p, ok := r.Get(route)
	if !ok {
		return nil, fmt.Errorf("no provider registered for route %q", route)
	}
	return p, nil
}

// CompleteWithFallback calls the primary route; on failure it retries
// once against the fallback route before surfacing the error to the
// caller. Every operation starts at the primary route:
// config.LLMProviderRouting's per-operation choices are not consulted.
func (r *Registry) CompleteWithFallback(ctx context.Context, req *Request) (*Response, error) {
	primary, err := r.Route("primary")
	if err == nil {
		resp, perr := primary.Complete(ctx, req)
		if perr == nil {
			return resp, nil
		}
	}

	fallback, ferr := r.Route("fallback")
	if ferr != nil {
		return nil, fmt.Errorf("primary failed and no fallback registered: %w", ferr)
	}
	return fallback.Complete(ctx, req)
}

// normalizeModel lowercases a model identifier for pattern matching,
// kept from the teacher's multi-vendor detection helper for providers
// that route by model name.
func normalizeModel(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}

// NamedRoute wraps a Provider so it registers under a route name
// ("primary", "fallback") instead of its own vendor name, letting the
// same connector type serve different routes across deployments
// (e.g. Anthropic as primary in one venue, fallback in another).
type NamedRoute struct {
	Provider
	route string
}

// AsRoute wraps p so Registry.Register files it under route.
func AsRoute(p Provider, route string) NamedRoute {
	return NamedRoute{Provider: p, route: route}
}

func (n NamedRoute) Name() string { return n.route }
