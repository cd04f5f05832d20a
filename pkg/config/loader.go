package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// configCache provides a type-safe way to store and retrieve configuration
// instances using generics.
type configCache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
}

var (
	globalCache = &configCache{
		values: make(map[string]any),
		onces:  make(map[string]*sync.Once),
	}

	// defaultEnvLoaded tracks if the default .env file has been loaded
	defaultEnvLoaded sync.Once
)

// LoadEnv loads environment variables from one or more .env files.
// If no paths are provided, it attempts to load the default .env file
// from the current directory.
//
// Files are loaded in the order provided. Variables in files loaded later
// take precedence over variables in files loaded earlier.
func LoadEnv(filenames ...string) error {
	// Reset singleton mechanisms to allow reloading configurations
	globalCache.mu.Lock()
	globalCache.values = make(map[string]any)
	globalCache.onces = make(map[string]*sync.Once)
	defaultEnvLoaded = sync.Once{}
	globalCache.mu.Unlock()

	if len(filenames) == 0 {
		return godotenv.Load()
	}

	var envMap = make(map[string]string)
	for _, filename := range filenames {
		fileEnv, err := godotenv.Read(filename)
		if err != nil {
			return err
		}
		maps.Copy(envMap, fileEnv)
	}

	for key, value := range envMap {
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}

	return nil
}

// MustLoadEnv works like LoadEnv but panics if loading fails.
func MustLoadEnv(filenames ...string) {
	if err := LoadEnv(filenames...); err != nil {
		panic(fmt.Sprintf("Failed to load environment file(s): %v", err))
	}
}

// Load loads environment variables into the provided configuration struct.
// Each unique configuration type is only parsed once per process; subsequent
// calls for the same type return the cached copy. Use LoadEnv() first to pull
// values from a custom .env file.
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file might not exist and that's ok.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	typeName := getTypeName[T]()

	globalCache.mu.RLock()
	if cached, ok := globalCache.values[typeName]; ok {
		*v = cached.(T)
		globalCache.mu.RUnlock()
		return nil
	}
	globalCache.mu.RUnlock()

	globalCache.mu.Lock()
	once, exists := globalCache.onces[typeName]
	if !exists {
		once = new(sync.Once)
		globalCache.onces[typeName] = once
	}
	globalCache.mu.Unlock()

	var err error
	once.Do(func() {
		if parseErr := env.Parse(v); parseErr != nil {
			err = errors.Join(ErrParsingConfig, parseErr)
			return
		}

		globalCache.mu.Lock()
		globalCache.values[typeName] = *v
		globalCache.mu.Unlock()
	})

	if err != nil {
		return err
	}

	globalCache.mu.RLock()
	defer globalCache.mu.RUnlock()
	if cached, ok := globalCache.values[typeName]; ok {
		*v = cached.(T)
		return nil
	}

	return ErrConfigNotLoaded
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}

// getTypeName returns a string identifier for the generic type T
func getTypeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}

// ResetCache clears all cached configuration instances. Primarily useful in
// tests that mutate the process environment between loads.
func ResetCache() {
	globalCache.mu.Lock()
	globalCache.values = make(map[string]any)
	globalCache.onces = make(map[string]*sync.Once)
	globalCache.mu.Unlock()
}
