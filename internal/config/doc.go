// Package config provides YAML-based configuration for the diracstore
// adapter and its CLI, with defaults, file loading, environment-variable
// overrides and validation.
package config
