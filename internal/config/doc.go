// Package config loads pipescan configuration: action inputs (flags,
// INPUT_* environment, config file keys) via viper, tool and feature
// settings from local or global YAML files, and CI credentials from the
// environment.
package config
