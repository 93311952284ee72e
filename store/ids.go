package store

import "github.com/google/uuid"

// newID mints a prefixed identifier for a new client or task,
// following the corpus-wide pattern of uuid-backed resource ids.
func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
