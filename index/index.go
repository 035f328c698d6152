// Package index keeps the secondary index a store uses to answer
// "every entity whose auto-load field equals X" without scanning.
package index

import "context"

// Store maps an index key (one field value) to the set of primary keys filed under it.
// Use Local for in-process stores or Redis to share the index across processes.
type Store interface {
	// Add files member under key. Adding an existing member is a no-op.
	Add(ctx context.Context, key, member string) error
	// Remove drops member from key. Missing members are ignored.
	Remove(ctx context.Context, key, member string) error
	// Members returns every member of key; missing keys yield an empty result.
	Members(ctx context.Context, key string) ([]string, error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
