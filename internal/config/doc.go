// Package config loads, normalizes, and validates whittle's TOML
// configuration.
//
// Load resolves the config path (explicit flag, ~/.config/whittle/config.toml,
// or a project-local whittle.toml), decodes it over the repository defaults,
// expands ~ in every path field, and validates section constraints. A missing
// file is not an error; the defaults are returned and the resolved path
// reports exists=false so callers can suggest `whittle config init`.
package config
