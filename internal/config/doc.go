// Package config handles configuration loading, parsing, and validation
// from defaults, an optional YAML file and LEXICARD_-prefixed environment
// variables. It provides type-safe access to provider model lists, cache
// sizing and the other settings components need, while keeping configuration
// details separate from business logic.
package config
