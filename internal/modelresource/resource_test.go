package modelresource_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/m2t/internal/modelmanifest"
	"github.com/vk/m2t/internal/modelresource"
	"github.com/vk/m2t/internal/value"
)

func TestLoadYAMLProducesNavigableModelObject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "order.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: o-1\ntotal: 42.5\n"), 0o644))

	raw, err := modelresource.Load("order", modelmanifest.Entry{Kind: "yaml", Path: path})
	require.NoError(t, err)

	v := value.FromNative(raw)
	obj, ok := value.AsModelObject(v)
	require.True(t, ok)
	nav := obj.(value.Navigable)
	id, found := nav.Property("id")
	require.True(t, found)
	assert.Equal(t, "o-1", id)
}

func TestLoadJSONProducesNavigableModelObject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "Ada"}`), 0o644))

	raw, err := modelresource.Load("customer", modelmanifest.Entry{Kind: "json", Path: path})
	require.NoError(t, err)

	v := value.FromNative(raw)
	obj, ok := value.AsModelObject(v)
	require.True(t, ok)
	nav := obj.(value.Navigable)
	name, found := nav.Property("name")
	require.True(t, found)
	assert.Equal(t, "Ada", name)
}

func TestLoadRejectsUnsupportedKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))

	_, err := modelresource.Load("x", modelmanifest.Entry{Kind: "toml", Path: path})
	assert.Error(t, err)
}

func TestLoadAllLoadsEveryManifestEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("k: v\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`{"k": "v"}`), 0o644))

	manifest := modelmanifest.Manifest{
		"a": {Kind: "yaml", Path: filepath.Join(dir, "a.yaml")},
		"b": {Kind: "json", Path: filepath.Join(dir, "b.json")},
	}
	loaded, err := modelresource.LoadAll(manifest)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}
