// Package config provides the configuration of mdcrawl: defaults, flag
// validation and clamping, and the optional YAML site file with per-host
// overrides.
package config
