package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu     sync.Mutex
	cache       = make(map[string]any)
	loadDefault sync.Once
)

// Load parses environment variables into v. The default .env file is loaded
// lazily once per process (a missing file is not an error). Each concrete
// configuration type is parsed once and cached afterwards.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	loadDefault.Do(func() {
		_ = godotenv.Load()
	})

	key := typeName[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[key] = *v
	return nil
}

// MustLoad is Load, panicking on failure. Use for configuration the process
// cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load required configuration: %v", err))
	}
}

// LoadEnv loads one or more .env files before any Load call; later files
// override earlier ones. Missing files are an error here, unlike the lazy
// default load.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("config: failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// ResetCache clears the per-type cache. Intended for tests.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[string]any)
}

func typeName[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", zero)
}
