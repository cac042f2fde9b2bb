// Package memory is an in-process datasource.Fetcher. The serve command falls
// back to it when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/atomic"

	"github.com/wundergraph/pgfederation/pkg/catalog"
	"github.com/wundergraph/pgfederation/pkg/datasource"
)

// LatencyFunc returns how long a fetch should take.
type LatencyFunc func(relation *catalog.Relation, where []datasource.Condition) time.Duration

type Option func(*Store)

// WithLatency delays every fetch by the duration returned from fn.
func WithLatency(fn LatencyFunc) Option {
	return func(s *Store) {
		s.latency = fn
	}
}

// Store holds rows keyed by column name.
type Store struct {
	mu      sync.RWMutex
	tables  map[string][]map[string]any
	latency LatencyFunc

	fetches     atomic.Uint32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

var _ datasource.Fetcher = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{
		tables: map[string][]map[string]any{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert appends rows to relation. Rows are keyed by column name; unknown columns are rejected.
func (s *Store) Insert(relation *catalog.Relation, rows ...map[string]any) error {
	for _, row := range rows {
		for column := range row {
			if _, ok := relation.Attribute(column); !ok {
				return fmt.Errorf("memory: relation %s has no column %s", relation.QualifiedName(), column)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := relation.QualifiedName()
	for _, row := range rows {
		stored := make(map[string]any, len(row))
		for column, value := range row {
			stored[column] = value
		}
		s.tables[key] = append(s.tables[key], stored)
	}
	return nil
}

func (s *Store) FetchRows(ctx context.Context, relation *catalog.Relation, where []datasource.Condition, fields []datasource.Field) ([]datasource.Row, error) {
	s.fetches.Inc()
	current := s.inFlight.Inc()
	defer s.inFlight.Dec()
	for {
		seen := s.maxInFlight.Load()
		if current <= seen || s.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}

	if s.latency != nil {
		timer := time.NewTimer(s.latency(relation, where))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []datasource.Row
	for _, row := range s.tables[relation.QualifiedName()] {
		if !matches(row, where) {
			continue
		}
		out = append(out, project(row, fields))
	}
	return out, nil
}

// Fetches returns the number of FetchRows calls served.
func (s *Store) Fetches() uint32 {
	return s.fetches.Load()
}

// MaxInFlight returns the highest number of concurrent FetchRows calls observed.
func (s *Store) MaxInFlight() int32 {
	return s.maxInFlight.Load()
}

func matches(row map[string]any, where []datasource.Condition) bool {
	for _, cond := range where {
		stored, ok := row[cond.Column.Name]
		if !ok || stored == nil || cond.Value == nil {
			return false
		}
		if cast.ToString(stored) != cast.ToString(cond.Value) {
			return false
		}
	}
	return true
}

func project(row map[string]any, fields []datasource.Field) datasource.Row {
	out := make(datasource.Row, len(fields))
	for _, field := range fields {
		if field.Column == "" {
			continue
		}
		out[field.ResponseKey()] = row[field.Column]
	}
	return out
}
