// Package extension provides run-time registries that let the engine work
// with user-defined step services and Go types (for example custom action
// inputs or outputs).
//
// The registries are normally populated through the public APIs under the
// root jobflow package, therefore most applications do not need to import
// this package directly.
package extension
