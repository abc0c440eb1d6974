// Package memory keeps a bounded history of accepted commands and finds the
// ones whose intent is closest to a new request.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/termax/internal/embedding"
	"github.com/felixgeelhaar/termax/internal/store"
)

// DefaultCapacity is the number of records kept when no size is configured.
const DefaultCapacity = 2000

// ErrStoreWrite reports that an accepted command could not be persisted.
var ErrStoreWrite = errors.New("memory: store write failed")

// Record is an accepted (intent, command) pair.
type Record struct {
	ID        string
	Intent    string
	Command   string
	CreatedAt time.Time
}

// Neighbor is a Record returned by Query with its distance to the probe.
type Neighbor struct {
	Record
	Distance float64
}

// Options tunes capacity enforcement.
type Options struct {
	Capacity int
	Policy   store.EvictionPolicy
}

// Memory is the similarity-indexed record store. It owns neither the storage
// nor the embedder; both are injected and closed by the caller.
type Memory struct {
	store    store.Storage
	embedder embedding.Embedder
	opts     Options
}

func New(s store.Storage, e embedding.Embedder, opts Options) *Memory {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Policy == "" {
		opts.Policy = store.EvictOldest
	}
	if e == nil {
		e = embedding.NewHashing(0)
	}
	return &Memory{store: s, embedder: e, opts: opts}
}

// Capacity returns the configured upper bound on stored records.
func (m *Memory) Capacity() int {
	return m.opts.Capacity
}

// Add persists an accepted pair, evicting first if the store is full. An
// empty command is ignored and yields a nil record.
func (m *Memory) Add(ctx context.Context, intent, command string) (*Record, error) {
	if strings.TrimSpace(command) == "" {
		return nil, nil
	}

	vec, err := m.embedder.Embed(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("%w: embed intent: %w", ErrStoreWrite, err)
	}

	rec := &store.Record{
		Intent:    intent,
		Command:   command,
		Vector:    vec,
		CreatedAt: time.Now(),
	}
	if _, err := m.store.AddRecord(ctx, rec, m.opts.Capacity, m.opts.Policy); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	return &Record{
		ID:        rec.ID,
		Intent:    rec.Intent,
		Command:   rec.Command,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Query returns at most k records nearest to intent, nearest first. Equal
// distances are ordered newest first, then by descending id.
func (m *Memory) Query(ctx context.Context, intent string, k int) ([]Neighbor, error) {
	if k <= 0 {
		return []Neighbor{}, nil
	}

	records, err := m.store.ScanRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: scan records: %w", err)
	}
	if len(records) == 0 {
		return []Neighbor{}, nil
	}

	probe, err := m.embedder.Embed(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("memory: embed probe: %w", err)
	}

	neighbors := make([]Neighbor, 0, len(records))
	for _, r := range records {
		neighbors = append(neighbors, Neighbor{
			Record: Record{
				ID:        r.ID,
				Intent:    r.Intent,
				Command:   r.Command,
				CreatedAt: r.CreatedAt,
			},
			Distance: embedding.Distance(probe, r.Vector),
		})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		a, b := neighbors[i], neighbors[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// List returns every record, newest first.
func (m *Memory) List(ctx context.Context) ([]Record, error) {
	records, err := m.store.ScanRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Record{ID: r.ID, Intent: r.Intent, Command: r.Command, CreatedAt: r.CreatedAt}
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	return m.store.CountRecords(ctx)
}

// Clear removes every record. Clearing an empty store is not an error.
func (m *Memory) Clear(ctx context.Context) error {
	return m.store.ClearRecords(ctx)
}
