// Package mirror builds a local mirror of the Dell update catalog for a chosen
// set of server models.
//
// The package serves two primary use cases:
//
//  1. Programmatic API via the Mirror interface - Applications can use
//     NewMirror to load a catalog, filter it to some models and synchronize
//     the referenced packages into a directory.
//
//  2. Embeddable CLI via NewCommand - Parent CLI tools can attach the
//     "models", "filter", "fetch" and "sync" commands to their Cobra root.
//
// # Catalog Format
//
// The published catalog is a gzip stream whose payload, after a two byte
// prefix, is UTF-16LE XML. Plain XML in UTF-8 or UTF-16 with a byte order
// mark is accepted as well. Unknown attributes and elements are preserved so
// an exported catalog keeps everything the original carried.
//
// # Synchronization
//
// Sync verifies existing files with the catalog's MD5 checksums and only
// downloads what is missing or corrupt. When anything was downloaded it
// writes Catalog.xml into the mirror root, with the upstream location
// removed, and deletes files no component references any more. Files
// directly in the mirror root are never touched.
//
// Component download failures do not stop a sync; they are returned in
// SyncReport.Failed as *ComponentError values.
//
// # Concurrency
//
// A Mirror may be used from multiple goroutines. Sync calls on one Mirror are
// serialized, and a lock file in the mirror root keeps separate processes
// from syncing the same destination at once.
package mirror
