// Package config loads typed configuration structs from environment variables
// (caarlos0/env tags) with optional .env files (godotenv). Every subsystem of
// the worker declares its own Config struct and loads it through this package,
// so a given config type is parsed exactly once per process.
package config
