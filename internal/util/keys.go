package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// StoreKey derives a bounded store key from an arbitrary cache key:
// "<prefix>:<ns>:<first 32 hex chars of sha256(key)>".
func StoreKey(prefix, ns, key string) string {
	sum := sha256.Sum256([]byte(key))
	return prefix + ":" + ns + ":" + hex.EncodeToString(sum[:16])
}
