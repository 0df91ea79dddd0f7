// Package memory is an in-process export target that keeps appended rows,
// for previews and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

type Sheet struct {
	mu   sync.Mutex
	name string
	rows [][]string
}

func New(name string) *Sheet {
	return &Sheet{name: name}
}

// Export appends header and rows and returns the A1 style row span they
// occupy.
func (s *Sheet) Export(_ context.Context, header []string, rows [][]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.rows) + 1
	s.rows = append(s.rows, clone(header))
	for _, r := range rows {
		s.rows = append(s.rows, clone(r))
	}
	return fmt.Sprintf("%s!%d:%d", s.name, first, len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Sheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = clone(r)
	}
	return out
}

func clone(in []string) []string {
	return append([]string(nil), in...)
}
