package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/m2t/internal/config"
	"github.com/vk/m2t/internal/interp"
)

func writeHCL(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "m2t.hcl")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestHCLLoaderMissingFileReturnsDefaults(t *testing.T) {
	l := config.NewHCLLoader()
	opts, err := l.Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), opts)
}

func TestHCLLoaderDecodesScalarOptions(t *testing.T) {
	path := writeHCL(t, `
main_template   = "main"
output_directory = "out"
charset         = "UTF-16"
debug           = true
`)
	l := config.NewHCLLoader()
	opts, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "main", opts.MainTemplate)
	assert.Equal(t, "out", opts.OutputDirectory)
	assert.Equal(t, "UTF-16", opts.Charset)
	assert.True(t, opts.Debug)
	assert.Equal(t, interp.TracePlaceholder, opts.TraceTargetPolicy)
}

func TestHCLLoaderDecodesModelsBlock(t *testing.T) {
	path := writeHCL(t, `
models {
  order = "models/order.yaml"
  cust  = "models/customer.yaml"
}
`)
	l := config.NewHCLLoader()
	opts, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "models/order.yaml", opts.Models["order"])
	assert.Equal(t, "models/customer.yaml", opts.Models["cust"])
}

func TestHCLLoaderDecodesTraceTargetPolicyUUID(t *testing.T) {
	path := writeHCL(t, `trace_target_policy = "uuid"`)
	l := config.NewHCLLoader()
	opts, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, interp.TraceUUID, opts.TraceTargetPolicy)
}

func TestHCLLoaderRejectsUnknownTraceTargetPolicy(t *testing.T) {
	path := writeHCL(t, `trace_target_policy = "bogus"`)
	l := config.NewHCLLoader()
	_, err := l.Load(path)
	assert.Error(t, err)
}
