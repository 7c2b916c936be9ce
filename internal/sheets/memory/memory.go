package memory

import (
	"context"
	"fmt"
	"sync"

	"dompet/internal/core"
	"dompet/internal/sheets"
)

var _ sheets.EntryAppender = (*Sheet)(nil)

// Sheet is an in-process stand-in for the mirror spreadsheet.
type Sheet struct {
	mu   sync.Mutex
	rows []core.Entry
	fail error
}

func New() *Sheet {
	return &Sheet{}
}

// FailWith makes every following append return err. nil restores appends.
func (s *Sheet) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// AppendEntry records the entry and returns a synthetic row reference.
func (s *Sheet) AppendEntry(_ context.Context, e core.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.rows = append(s.rows, e)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Sheet) Rows() []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Entry(nil), s.rows...)
}
