// Package kv provides the flat string-keyed persistent store that backs the
// ephemeris cache. Callers scope their keys with a prefix; the store itself
// has no notion of namespaces.
package kv

// Store is a flat key/value store with key enumeration.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any existing value.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys returns every key in the store in lexical order.
	Keys() ([]string, error)
}
