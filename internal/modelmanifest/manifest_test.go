package modelmanifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/m2t/internal/modelmanifest"
)

func TestLoadMissingFileReturnsEmptyManifest(t *testing.T) {
	m, err := modelmanifest.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestLoadDecodesEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
order:
  kind: yaml
  path: models/order.yaml
customer:
  kind: json
  path: models/customer.json
`), 0o644))

	m, err := modelmanifest.Load(path)
	require.NoError(t, err)
	assert.Equal(t, modelmanifest.Entry{Kind: "yaml", Path: "models/order.yaml"}, m["order"])
	assert.Equal(t, modelmanifest.Entry{Kind: "json", Path: "models/customer.json"}, m["customer"])
}

func TestLoadRejectsEntryMissingPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("order:\n  kind: yaml\n"), 0o644))

	_, err := modelmanifest.Load(path)
	assert.Error(t, err)
}

func TestResolveOverridesAndAddsAliases(t *testing.T) {
	base := modelmanifest.Manifest{
		"order": {Kind: "yaml", Path: "models/order.yaml"},
	}
	merged := base.Resolve(map[string]string{
		"order":    "models/order-override.yaml",
		"customer": "models/customer.yaml",
	})
	assert.Equal(t, "models/order-override.yaml", merged["order"].Path)
	assert.Equal(t, "yaml", merged["order"].Kind)
	assert.Equal(t, "models/customer.yaml", merged["customer"].Path)
	assert.Equal(t, "yaml", merged["customer"].Kind)
}
