package config

import "github.com/vk/m2t/internal/interp"

// Options is the format-agnostic generate-time configuration of §6.6.
type Options struct {
	// MainTemplate overrides the auto-detect policy of §6.5; must name a
	// template that exists once loaded.
	MainTemplate string
	// OutputDirectory is the base path handed to the file-system output
	// strategy when generation runs against disk.
	OutputDirectory string
	// Charset is the default output encoding; falls back to "UTF-8".
	Charset string
	// Debug enables diagnostic logging at statement/scope boundaries.
	Debug bool
	// Models maps a resource alias to the manifest path the CLI resolves
	// against internal/modelmanifest before calling register_model.
	Models map[string]string
	// TraceTargetPolicy resolves Open Question (a); see
	// internal/interp.TraceTargetPolicy.
	TraceTargetPolicy interp.TraceTargetPolicy
}

// Defaults returns the option set generation falls back to when no
// configuration file is present.
func Defaults() *Options {
	return &Options{
		Charset:           "UTF-8",
		Models:            map[string]string{},
		TraceTargetPolicy: interp.TracePlaceholder,
	}
}

// Loader is the interface for a format-specific options loader.
type Loader interface {
	// Load reads generate-time options from path. A missing file is not an
	// error: callers get Defaults() back.
	Load(path string) (*Options, error)
}
