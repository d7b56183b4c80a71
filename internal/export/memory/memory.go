package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"aurabudget/internal/export"
)

var _ export.Sink = (*Store)(nil)

// Store keeps exported rows in process. Used when no spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows []export.Row
}

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(ctx context.Context, row export.Row) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if row.ExpenseID <= 0 {
		return "", errors.New("export row without expense id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of every appended row.
func (s *Store) Rows() []export.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Row(nil), s.rows...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
