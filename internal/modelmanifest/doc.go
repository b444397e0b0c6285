// Package modelmanifest decodes models.yaml, the alias -> loader kind ->
// path manifest that the CLI consults to build the opaque Resource
// handles §6.4 says register_model accepts. It is grounded on
// C360Studio-semspec/config/loader.go's layered YAML config loading, cut
// down to the single-file case this domain needs.
package modelmanifest
