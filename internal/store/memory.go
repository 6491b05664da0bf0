package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/saldo-app/saldo/internal/dataservice"
)

type memoryStore struct {
	mu     sync.RWMutex
	tables map[string][]dataservice.Row
}

// NewMemory creates a concurrency-safe in-memory store for development and tests.
func NewMemory() dataservice.Store {
	return &memoryStore{tables: make(map[string][]dataservice.Row)}
}

func (s *memoryStore) Insert(_ context.Context, table string, row dataservice.Row) (dataservice.Row, error) {
	t, err := lookup("insert", table)
	if err != nil {
		return nil, err
	}
	if err := checkColumns("insert", t, row); err != nil {
		return nil, err
	}

	stored := row.Clone()
	if stored[t.key()] == "" {
		stored[t.key()] = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tables[table] {
		if existing[t.key()] == stored[t.key()] {
			return nil, dataservice.Errorf("insert", "duplicate key value violates unique constraint \"%s_pkey\"", table)
		}
	}
	s.tables[table] = append(s.tables[table], stored)
	return stored.Clone(), nil
}

func (s *memoryStore) Select(_ context.Context, table string, filter dataservice.Filter) ([]dataservice.Row, error) {
	t, err := lookup("select", table)
	if err != nil {
		return nil, err
	}
	if err := checkFilter("select", t, filter); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []dataservice.Row{}
	for _, row := range s.tables[table] {
		if filter.Match(row) {
			out = append(out, row.Clone())
		}
	}
	return out, nil
}

func (s *memoryStore) Update(_ context.Context, table string, values dataservice.Row, filter dataservice.Filter) error {
	t, err := lookup("update", table)
	if err != nil {
		return err
	}
	if err := checkColumns("update", t, values); err != nil {
		return err
	}
	if err := checkFilter("update", t, filter); err != nil {
		return err
	}
	if _, ok := values[t.key()]; ok {
		return dataservice.Errorf("update", "column %q cannot be updated", t.key())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	matched := 0
	for _, row := range s.tables[table] {
		if !filter.Match(row) {
			continue
		}
		for k, v := range values {
			row[k] = v
		}
		matched++
	}
	if matched == 0 {
		return dataservice.NotFound("update", table)
	}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, table string, filter dataservice.Filter) error {
	t, err := lookup("delete", table)
	if err != nil {
		return err
	}
	if err := checkFilter("delete", t, filter); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	kept := rows[:0]
	for _, row := range rows {
		if !filter.Match(row) {
			kept = append(kept, row)
		}
	}
	if len(kept) == len(rows) {
		return dataservice.NotFound("delete", table)
	}
	// Clear the tail so removed rows are not retained by the backing array.
	for i := len(kept); i < len(rows); i++ {
		rows[i] = nil
	}
	s.tables[table] = kept
	return nil
}
