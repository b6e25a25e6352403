// Package artifact contains concrete implementations of core.ArtifactStore.
//
// The interface lives in core so agents never depend on a storage backend.
// InMemoryStore serves tests and single-process runs; the sqlite
// sub-package keeps finished reports across restarts.
package artifact
