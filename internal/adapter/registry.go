package adapter

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
)

var (
	registry     = make(map[string]func() Adapter)
	registryLock sync.RWMutex
	envOnce      sync.Once
)

// Register adds an adapter factory to the registry under name. Adapter
// packages call this from an init() func.
func Register(name string, factory func() Adapter) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[name] = factory
}

// Get constructs and returns the adapter registered under name. Credential
// environment variables are loaded from a .env file (if present) exactly
// once, the first time Get is called.
func Get(name string) (Adapter, error) {
	envOnce.Do(func() { _ = godotenv.Load() })

	registryLock.RLock()
	defer registryLock.RUnlock()

	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("adapter: unknown backend %q", name)
	}
	return factory(), nil
}

// List returns all registered adapter names.
func List() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Exists reports whether name is registered.
func Exists(name string) bool {
	registryLock.RLock()
	defer registryLock.RUnlock()
	_, ok := registry[name]
	return ok
}
