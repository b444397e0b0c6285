package modelmanifest

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry describes how a single model alias should be loaded.
type Entry struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

// Manifest is the alias -> Entry map decoded from models.yaml.
type Manifest map[string]Entry

// Load reads and decodes path. A missing file yields an empty manifest,
// mirroring config.HCLLoader's "optional file" treatment.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("modelmanifest: no manifest file, using empty manifest", "path", path)
			return Manifest{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if m == nil {
		m = Manifest{}
	}
	for alias, entry := range m {
		if entry.Kind == "" {
			return nil, fmt.Errorf("%s: model %q missing required \"kind\"", path, alias)
		}
		if entry.Path == "" {
			return nil, fmt.Errorf("%s: model %q missing required \"path\"", path, alias)
		}
	}
	slog.Debug("modelmanifest: loaded", "path", path, "aliases", len(m))
	return m, nil
}

// Resolve merges the config.Options `models` alias -> path overrides
// (§6.6) on top of a base manifest, letting an m2t.hcl override or add
// aliases without editing models.yaml.
func (m Manifest) Resolve(overrides map[string]string) Manifest {
	out := make(Manifest, len(m)+len(overrides))
	for alias, entry := range m {
		out[alias] = entry
	}
	for alias, path := range overrides {
		entry := out[alias]
		entry.Path = path
		if entry.Kind == "" {
			entry.Kind = "yaml"
		}
		out[alias] = entry
	}
	return out
}
