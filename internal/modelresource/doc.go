// Package modelresource implements the concrete "imported model loader"
// of §6.4: given a modelmanifest.Entry, produce the opaque Resource handle
// register_model binds into a generation run. Two kinds are supported,
// yaml and json, both decoding into the same map[string]any/[]any native
// shape that internal/value.FromNative already knows how to navigate.
package modelresource
