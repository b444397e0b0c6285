package modelresource

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/m2t/internal/modelmanifest"
)

// Load reads and decodes the file named by entry into a native Go value
// suitable for value.FromNative — a map[string]any, a []any, or a scalar,
// depending on the document's shape.
func Load(alias string, entry modelmanifest.Entry) (any, error) {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("model %q: failed to read %s: %w", alias, entry.Path, err)
	}

	var out any
	switch entry.Kind {
	case "yaml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("model %q: failed to decode %s as yaml: %w", alias, entry.Path, err)
		}
		out = normalizeYAML(out)
	case "json":
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("model %q: failed to decode %s as json: %w", alias, entry.Path, err)
		}
	default:
		return nil, fmt.Errorf("model %q: unsupported loader kind %q", alias, entry.Kind)
	}

	slog.Debug("modelresource: loaded", "alias", alias, "path", entry.Path, "kind", entry.Kind)
	return out, nil
}

// LoadAll resolves and loads every entry in a manifest, returning an
// alias -> native-value map ready to hand to interp.Interpreter.Generate.
func LoadAll(manifest modelmanifest.Manifest) (map[string]any, error) {
	out := make(map[string]any, len(manifest))
	for alias, entry := range manifest {
		v, err := Load(alias, entry)
		if err != nil {
			return nil, err
		}
		out[alias] = v
	}
	return out, nil
}

// normalizeYAML recursively converts the map[string]interface{} shape
// gopkg.in/yaml.v3 already produces at the top level, but also the
// map[interface{}]interface{} shape older library versions and nested
// merge keys can still surface, into map[string]any so value.FromNative's
// type switch matches it.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return t
	}
}
