package photorec

import (
	"fmt"
	"sort"
	"strings"

	"whittle/internal/config"
	"whittle/internal/services"
)

// Settings captures the per-job carve options handed to the engine.
type Settings struct {
	KeepCorrupted bool
	// FilterMode is one of the config.Filter* values.
	FilterMode string
	Extensions []string
}

// SettingsFromConfig lifts the engine section of the configuration into
// carve settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{FilterMode: config.FilterOff}
	}
	return Settings{
		KeepCorrupted: cfg.Engine.KeepCorrupted,
		FilterMode:    cfg.Engine.FilterMode,
		Extensions:    append([]string(nil), cfg.Engine.Extensions...),
	}
}

// Validate rejects settings the engine would silently misinterpret: an
// include filter with no extensions carves nothing, and an extension outside
// the engine's fileopt table is ignored by the engine entirely.
func (s Settings) Validate() error {
	if s.FilterMode == config.FilterOff {
		return nil
	}
	if s.FilterMode == config.FilterInclude && len(s.Extensions) == 0 {
		return services.Wrap(services.ErrConfiguration, "engine", "validate settings",
			"no extensions provided for the include filter", nil)
	}
	var invalid []string
	for _, ext := range s.Extensions {
		if !IsSupportedExtension(ext) {
			invalid = append(invalid, ext)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return services.Wrap(services.ErrConfiguration, "engine", "validate settings",
			fmt.Sprintf("unsupported extensions: %s", strings.Join(invalid, ",")), nil)
	}
	return nil
}

// OptionsString renders the settings as the engine's comma-joined command
// token list. Include mode disables "everything" and then enables each listed
// extension; exclude mode is the inverse. The list always ends with "search".
func (s Settings) OptionsString() string {
	tokens := make([]string, 0, 4+2*len(s.Extensions))

	if s.KeepCorrupted {
		tokens = append(tokens, "options", "keep_corrupted_file")
	}

	if s.FilterMode != config.FilterOff {
		tokens = append(tokens, "fileopt")

		everything := "enable"
		item := "disable"
		if s.FilterMode == config.FilterInclude {
			everything = "disable"
			item = "enable"
		}
		tokens = append(tokens, "everything", everything)
		for _, ext := range s.Extensions {
			tokens = append(tokens, ext, item)
		}
	}

	tokens = append(tokens, "search")
	return strings.Join(tokens, ",")
}
