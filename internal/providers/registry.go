package providers

import (
	"errors"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderExists is returned when trying to register a duplicate provider.
	ErrProviderExists = errors.New("provider already exists")

	// ErrNoAvailableProvider is returned when no provider is available.
	ErrNoAvailableProvider = errors.New("no available provider")
)

// providerSet holds one kind of provider keyed by name, tracking a default.
// The first available registration becomes the default until overridden.
type providerSet[T Provider] struct {
	byName      map[string]T
	defaultName string
}

func newProviderSet[T Provider]() *providerSet[T] {
	return &providerSet[T]{byName: make(map[string]T)}
}

func (s *providerSet[T]) register(p T) error {
	name := p.Name()
	if _, exists := s.byName[name]; exists {
		return ErrProviderExists
	}
	s.byName[name] = p
	if s.defaultName == "" && p.Available() {
		s.defaultName = name
	}
	return nil
}

func (s *providerSet[T]) get(name string) (T, error) {
	p, exists := s.byName[name]
	if !exists {
		var zero T
		return zero, ErrProviderNotFound
	}
	return p, nil
}

func (s *providerSet[T]) defaultProvider() (T, error) {
	if s.defaultName != "" {
		return s.byName[s.defaultName], nil
	}
	for _, p := range s.byName {
		if p.Available() {
			return p, nil
		}
	}
	var zero T
	return zero, ErrNoAvailableProvider
}

func (s *providerSet[T]) setDefault(name string) error {
	if _, exists := s.byName[name]; !exists {
		return ErrProviderNotFound
	}
	s.defaultName = name
	return nil
}

func (s *providerSet[T]) list(onlyAvailable bool) []T {
	out := make([]T, 0, len(s.byName))
	for _, p := range s.byName {
		if onlyAvailable && !p.Available() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Registry manages registration and lookup of semantic and embeddings
// providers under a single lock.
type Registry struct {
	mu         sync.RWMutex
	semantic   *providerSet[SemanticProvider]
	embeddings *providerSet[EmbeddingsProvider]
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		semantic:   newProviderSet[SemanticProvider](),
		embeddings: newProviderSet[EmbeddingsProvider](),
	}
}

// RegisterSemantic registers a semantic provider.
func (r *Registry) RegisterSemantic(p SemanticProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.semantic.register(p)
}

// RegisterEmbeddings registers an embeddings provider.
func (r *Registry) RegisterEmbeddings(p EmbeddingsProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.embeddings.register(p)
}

// GetSemantic returns a semantic provider by name.
func (r *Registry) GetSemantic(name string) (SemanticProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.semantic.get(name)
}

// GetEmbeddings returns an embeddings provider by name.
func (r *Registry) GetEmbeddings(name string) (EmbeddingsProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.embeddings.get(name)
}

// DefaultSemantic returns the default semantic provider, or the first
// available one when no default was set.
func (r *Registry) DefaultSemantic() (SemanticProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.semantic.defaultProvider()
}

// DefaultEmbeddings returns the default embeddings provider, or the first
// available one when no default was set.
func (r *Registry) DefaultEmbeddings() (EmbeddingsProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.embeddings.defaultProvider()
}

// SetDefaultSemantic sets the default semantic provider by name.
func (r *Registry) SetDefaultSemantic(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.semantic.setDefault(name)
}

// SetDefaultEmbeddings sets the default embeddings provider by name.
func (r *Registry) SetDefaultEmbeddings(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.embeddings.setDefault(name)
}

// ListSemantic returns all registered semantic providers.
func (r *Registry) ListSemantic() []SemanticProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.semantic.list(false)
}

// ListEmbeddings returns all registered embeddings providers.
func (r *Registry) ListEmbeddings() []EmbeddingsProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.embeddings.list(false)
}

// AvailableSemantic returns all available semantic providers.
func (r *Registry) AvailableSemantic() []SemanticProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.semantic.list(true)
}

// AvailableEmbeddings returns all available embeddings providers.
func (r *Registry) AvailableEmbeddings() []EmbeddingsProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.embeddings.list(true)
}
