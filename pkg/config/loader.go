package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

type loadOptions struct {
	prefix string
	files  []string
}

// LoadOption tunes a single Load call.
type LoadOption func(*loadOptions)

// WithPrefix reads every variable as prefix+NAME, for example "SESSIOND_".
func WithPrefix(prefix string) LoadOption {
	return func(o *loadOptions) {
		o.prefix = prefix
	}
}

// WithEnvFiles loads the given dotenv files before parsing. Missing files are
// an error, unlike the default .env which is optional.
func WithEnvFiles(files ...string) LoadOption {
	return func(o *loadOptions) {
		o.files = append(o.files, files...)
	}
}

// Load fills v from environment variables according to its env tags.
// The .env file in the working directory is read once per process if present;
// variables already set in the environment win.
//
//	type StoreConfig struct {
//		Driver string `env:"STORE" envDefault:"memory"`
//		URL    string `env:"STORE_URL"`
//	}
//
//	var cfg StoreConfig
//	err := config.Load(&cfg, config.WithPrefix("SESSIOND_"))
func Load[T any](v *T, opts ...LoadOption) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvLoaded.Do(func() {
		_ = godotenv.Load()
	})

	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.files) > 0 {
		if err := godotenv.Load(o.files...); err != nil {
			return errors.Join(ErrEnvFile, err)
		}
	}

	if err := env.ParseWithOptions(v, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T, opts ...LoadOption) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}
