// Package cache provides the fragment cache used to deduplicate repeated
// document submissions inside the processing pipeline.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// DocumentKey generates a cache key from a document's type and content.
// Two submissions of the same bytes under the same type hit the same entry.
func DocumentKey(docType, content string) string {
	hash := sha256.Sum256([]byte(docType + "\x00" + content))
	return "loanforge:v1:" + hex.EncodeToString(hash[:])
}
