// Package store persists postal code to location mappings. Every
// implementation is append-only: the first write for a code wins and later
// writes report stored=false with a nil error. Get returns
// sentinel.ErrNotFound for unknown codes.
package store
