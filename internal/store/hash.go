package store

import (
	"crypto/sha256"
	"fmt"
)

// ContentHash is the cache key of a unit's source text.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}
