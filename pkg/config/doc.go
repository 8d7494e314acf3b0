// Package config loads typed configuration structs from environment
// variables, optionally seeded from .env files.
//
// Fields are declared with caarlos0/env tags:
//
//	type RealtimeConfig struct {
//		Workers         int `env:"RT_WRITE_WORKERS" envDefault:"4"`
//		DeliveryWorkers int `env:"RT_DELIVERY_CONCURRENCY" envDefault:"16"`
//	}
//
//	var cfg RealtimeConfig
//	config.MustLoad(&cfg)
//
// Each configuration type is parsed once per process and cached; subsequent
// Load calls for the same type return the cached copy.
package config
