package cache

import (
	"fmt"
	"time"
)

const (
	// DefaultKeyPrefix namespaces every key the store backend writes.
	DefaultKeyPrefix = "arcade:"

	RateLimitKeyPrefix = "ratelimit:%s:%s"
)

// RateLimitWindow is the default fixed window for request counting.
const RateLimitWindow = time.Minute

// RateLimitKey returns the counter key for resource and caller identity.
func RateLimitKey(resource, identity string) string {
	return fmt.Sprintf(RateLimitKeyPrefix, resource, identity)
}
