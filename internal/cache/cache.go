package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching serialized readings
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key for one (source, country, metric, period) lookup.
// The period component may be empty when the caller wants "latest".
func Key(source, country, metric, period string) string {
	raw := strings.Join([]string{source, country, metric, period}, "|")
	hash := sha256.Sum256([]byte(raw))
	return "macroscope:v1:" + hex.EncodeToString(hash[:])
}
