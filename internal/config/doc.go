// Package config loads paperpilot settings from defaults, an optional YAML
// file and PAPERPILOT_* environment variables, then validates them.
package config
