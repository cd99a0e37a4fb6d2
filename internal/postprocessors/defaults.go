package postprocessors

import (
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tally-cli/internal/logger"
)

// Built-in processor names.
const (
	NameAliases = "aliases"
	NameSchema  = "schema"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry, log *logger.Logger) {
	r.Register(NameAliases, buildAliases)
	r.Register(NameSchema, func(_ map[string]any) (driven.PostProcessor, error) {
		return NewSchemaProcessor(log)
	})
}

// buildAliases creates an alias processor from generic config.
// Supported config keys:
//   - extra (table of string to string): additional from -> to renames
func buildAliases(cfg map[string]any) (driven.PostProcessor, error) {
	return NewAliasProcessor(getStringMapFromConfig(cfg, "extra")), nil
}

// getStringMapFromConfig safely extracts a string map from generic config.
// Non-string values are skipped.
func getStringMapFromConfig(cfg map[string]any, key string) map[string]string {
	if cfg == nil {
		return nil
	}
	raw, ok := cfg[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
