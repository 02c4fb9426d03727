// Package store persists drafts and completed registrations. Lookups of
// unknown IDs return sentinel.ErrNotFound.
package store
