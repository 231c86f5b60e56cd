package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrModelNotSupported is returned when no registered provider offers a model
	ErrModelNotSupported = errors.New("model not supported")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrStreamingNotSupported is returned when a model's provider cannot stream
	ErrStreamingNotSupported = errors.New("provider does not support streaming")
)

// Registry manages provider instances and model mappings
type Registry struct {
	mu             sync.RWMutex
	providers      map[string]Provider
	modelProviders map[string]string // model -> provider name
	logger         *zap.Logger
}

// NewRegistry creates an empty provider registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		providers:      make(map[string]Provider),
		modelProviders: make(map[string]string),
		logger:         logger,
	}
}

// Register adds a provider and indexes its models
func (r *Registry) Register(provider Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	name := provider.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, name)
	}

	r.providers[name] = provider
	for _, model := range provider.ListModels() {
		r.modelProviders[model] = name
	}

	r.logger.Info("provider registered",
		zap.String("provider", name),
		zap.Int("models", len(provider.ListModels())),
	)
	return nil
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[name]
	return provider, ok
}

// ForModel finds the provider that serves model. Models missing from the
// index are offered to each provider's ValidateModel in name order.
func (r *Registry) ForModel(model string) (Provider, error) {
	r.mu.RLock()
	if name, ok := r.modelProviders[model]; ok {
		provider := r.providers[name]
		r.mu.RUnlock()
		return provider, nil
	}
	names := r.sortedNames()
	r.mu.RUnlock()

	for _, name := range names {
		provider, ok := r.Get(name)
		if !ok || provider.ValidateModel(model) != nil {
			continue
		}
		r.mu.Lock()
		r.modelProviders[model] = name
		r.mu.Unlock()
		return provider, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, model)
}

// StreamingForModel finds a streaming-capable provider for model
func (r *Registry) StreamingForModel(model string) (StreamingProvider, error) {
	provider, err := r.ForModel(model)
	if err != nil {
		return nil, err
	}
	streaming, ok := provider.(StreamingProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStreamingNotSupported, provider.Name())
	}
	return streaming, nil
}

// List returns the registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// ListModels returns every indexed model, sorted
func (r *Registry) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.modelProviders))
	for model := range r.modelProviders {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// FindModels returns the indexed models containing pattern, case-insensitively
func (r *Registry) FindModels(pattern string) []string {
	pattern = strings.ToLower(pattern)
	var matches []string
	for _, model := range r.ListModels() {
		if strings.Contains(strings.ToLower(model), pattern) {
			matches = append(matches, model)
		}
	}
	return matches
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// caller holds at least a read lock
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
