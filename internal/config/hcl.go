package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/m2t/internal/interp"
)

// HCLLoader is the HCL-specific implementation of Loader, grounded on the
// teacher's internal/hcl_adapter.Loader: parse with hclparse, decode the
// typed top-level attributes with gohcl, and pull the free-form `models`
// block out with JustAttributes since its keys are alias names chosen by
// the user rather than a fixed schema.
type HCLLoader struct{}

// NewHCLLoader returns a ready-to-use HCL options loader.
func NewHCLLoader() *HCLLoader {
	return &HCLLoader{}
}

// fileRoot decodes the fixed top-level attributes of an m2t.hcl file; the
// models block is handled separately via Remain since gohcl has no typed
// shape for "block whose attribute names are arbitrary".
type fileRoot struct {
	MainTemplate      *string  `hcl:"main_template,optional"`
	OutputDirectory   *string  `hcl:"output_directory,optional"`
	Charset           *string  `hcl:"charset,optional"`
	Debug             *bool    `hcl:"debug,optional"`
	TraceTargetPolicy *string  `hcl:"trace_target_policy,optional"`
	Models            *models  `hcl:"models,block"`
	Remain            hcl.Body `hcl:",remain"`
}

type models struct {
	Body hcl.Body `hcl:",remain"`
}

// Load reads and decodes path. A missing file returns Defaults() rather
// than an error, since an m2t.hcl is optional (§6.6 lists options, not a
// mandatory file).
func (l *HCLLoader) Load(path string) (*Options, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Debug("config: no configuration file, using defaults", "path", path)
		return Defaults(), nil
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", path, diags)
	}

	opts := Defaults()
	if root.MainTemplate != nil {
		opts.MainTemplate = *root.MainTemplate
	}
	if root.OutputDirectory != nil {
		opts.OutputDirectory = *root.OutputDirectory
	}
	if root.Charset != nil {
		opts.Charset = *root.Charset
	}
	if root.Debug != nil {
		opts.Debug = *root.Debug
	}
	if root.TraceTargetPolicy != nil {
		switch interp.TraceTargetPolicy(*root.TraceTargetPolicy) {
		case interp.TraceUUID:
			opts.TraceTargetPolicy = interp.TraceUUID
		case interp.TracePlaceholder:
			opts.TraceTargetPolicy = interp.TracePlaceholder
		default:
			return nil, fmt.Errorf("%s: trace_target_policy %q is not one of \"placeholder\", \"uuid\"", path, *root.TraceTargetPolicy)
		}
	}
	if root.Models != nil {
		attrs, diags := root.Models.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode models block in %s: %w", path, diags)
		}
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("failed to evaluate models.%s in %s: %w", name, path, diags)
			}
			if val.Type().FriendlyName() != "string" {
				return nil, fmt.Errorf("models.%s in %s: expected a string path, got %s", name, path, val.Type().FriendlyName())
			}
			opts.Models[name] = val.AsString()
		}
	}

	slog.Debug("config: loaded options", "path", path, "main_template", opts.MainTemplate, "models", len(opts.Models))
	return opts, nil
}
