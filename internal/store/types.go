package store

import (
	"context"
	"time"
)

// Record is an accepted (intent, command) pair. The vector is the embedding of
// Intent computed once at write time.
type Record struct {
	ID        string
	Intent    string
	Command   string
	Vector    []float32
	CreatedAt time.Time
}

// EvictionPolicy decides what happens when an insert would exceed capacity.
type EvictionPolicy string

const (
	// EvictOldest removes just enough of the oldest records to make room.
	EvictOldest EvictionPolicy = "fifo"
	// EvictAll wipes every record before the insert.
	EvictAll EvictionPolicy = "wipe"
)

// ParseEvictionPolicy maps a configuration value to a policy. Unknown values
// fall back to EvictOldest.
func ParseEvictionPolicy(s string) EvictionPolicy {
	switch EvictionPolicy(s) {
	case EvictAll:
		return EvictAll
	default:
		return EvictOldest
	}
}

// Storage defines the interface for persistence
type Storage interface {
	// Configuration Management
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)
	DeleteConfig(key string) error
	ListConfig(prefix string) (map[string]string, error)

	// Record Management
	// AddRecord evicts according to policy when the table already holds
	// capacity rows, then inserts rec. It returns the number of evicted rows.
	AddRecord(ctx context.Context, rec *Record, capacity int, policy EvictionPolicy) (int, error)
	ScanRecords(ctx context.Context) ([]Record, error)
	CountRecords(ctx context.Context) (int, error)
	ClearRecords(ctx context.Context) error

	Close() error
}
