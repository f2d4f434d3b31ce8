package rowstore

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps sheets in process. It is safe for concurrent use; callers
// still need a lock.Locker around read-modify-write sequences.
type Memory struct {
	mu     sync.RWMutex
	sheets map[string]*memorySheet
}

// NewMemory creates a store seeded with the given grids.
func NewMemory(seed map[string][][]any) *Memory {
	m := &Memory{sheets: make(map[string]*memorySheet)}
	for name, grid := range seed {
		s := &memorySheet{name: name}
		for _, row := range grid {
			s.rows = append(s.rows, NormalizeRow(row))
		}
		m.sheets[name] = s
	}
	return m
}

// Sheet returns the named sheet.
func (m *Memory) Sheet(_ context.Context, name string) (Sheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	return s, nil
}

// EnsureSheet returns the named sheet, creating an empty one if needed.
func (m *Memory) EnsureSheet(_ context.Context, name string) (Sheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sheets[name]
	if !ok {
		s = &memorySheet{name: name}
		m.sheets[name] = s
	}
	return s, nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

type memorySheet struct {
	name string
	mu   sync.RWMutex
	rows [][]any
}

func (s *memorySheet) Name() string { return s.name }

func (s *memorySheet) Values(context.Context) ([][]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]any, len(s.rows))
	for i, row := range s.rows {
		out[i] = append([]any(nil), row...)
	}
	return out, nil
}

func (s *memorySheet) AppendRows(_ context.Context, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.rows = append(s.rows, NormalizeRow(row))
	}
	return nil
}

func (s *memorySheet) SetCell(_ context.Context, row, col int, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkPosition(row, len(s.rows)); err != nil {
		return err
	}
	if col < 1 {
		return fmt.Errorf("invalid column %d", col)
	}
	r := s.rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = Normalize(value)
	s.rows[row-1] = r
	return nil
}

func (s *memorySheet) SetRow(_ context.Context, row int, values []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkPosition(row, len(s.rows)); err != nil {
		return err
	}
	s.rows[row-1] = NormalizeRow(values)
	return nil
}

func (s *memorySheet) DeleteRow(_ context.Context, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkPosition(row, len(s.rows)); err != nil {
		return err
	}
	s.rows = append(s.rows[:row-1], s.rows[row:]...)
	return nil
}
