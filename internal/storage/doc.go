// Package storage provides the durable key-value contract backing the
// device and user registries.
//
// Registries serialise their full entity set to a single blob and persist it
// under a well-known key on every mutation. The SQLite implementation stores
// blobs in the registry_blobs table; Memory backs tests and development.
//
// The error kinds here are shared by every registry: ErrNotFound for an
// absent key, ErrPersistence for a failed write (surfaced, never swallowed),
// and ErrCorrupt for content that loads but fails to parse.
package storage
