// Package config defines the generate-time options model (§6.6) and the
// Loader interface for reading it from an HCL source file, along with the
// core interfaces used to bind configuration to Go types.
//
// The `config.Options` is the single source of truth consumed by
// `cmd/m2t` when invoking the interpreter. Concrete implementations of
// Loader, such as the HCL one, are provided in this package directly
// (unlike the teacher, which splits format-specific adapters into a
// sibling package, since only one configuration format is in scope here).
package config
