package cache

import (
	"fmt"
	"time"
)

const (
	// Snapshot of every public group: groupcart:snapshot:public:{generation} -> JSON array
	KeyPublicSnapshot = "groupcart:snapshot:public:%d"

	// Current snapshot generation, bumped on every invalidation
	KeySnapshotGeneration = "groupcart:snapshot:generation"

	// Dedup of consumed events: groupcart:dedup:{consumer}:{event_id}
	KeyDedup = "groupcart:dedup:%s:%s"
)

var (
	TTLSnapshot = 30 * time.Second
	TTLDedup    = 48 * time.Hour
)

// SnapshotKey is the key holding the snapshot for generation gen.
func SnapshotKey(gen int64) string {
	return fmt.Sprintf(KeyPublicSnapshot, gen)
}
