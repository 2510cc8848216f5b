// Package segment provides a reference segment source that splits an
// in-memory record set into fixed-size pages.
package segment

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexisbeaulieu97/exportrun/internal/domain/export"
)

// ErrPageClosed is returned when a page is closed more than once.
var ErrPageClosed = errors.New("page already closed")

// Page is one segment of a PagedSource.
type Page struct {
	index   int
	records []export.Record
	closed  bool
}

// FileIndex returns the zero-based position of the page.
func (p *Page) FileIndex() int { return p.index }

// Records returns the records of the page, or nil once it was closed.
func (p *Page) Records() []export.Record {
	if p.closed {
		return nil
	}
	return p.records
}

// Close releases the page's records.
func (p *Page) Close() error {
	if p.closed {
		return fmt.Errorf("page %d: %w", p.index, ErrPageClosed)
	}
	p.closed = true
	p.records = nil
	return nil
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool { return p.closed }

// PagedSource hands out consecutive pages of at most pageSize records.
type PagedSource struct {
	records  []export.Record
	pageSize int
	offset   int
	index    int
}

// NewPagedSource returns a source over records. pageSize must be positive.
func NewPagedSource(records []export.Record, pageSize int) (*PagedSource, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	return &PagedSource{records: records, pageSize: pageSize}, nil
}

// Next returns the following page. ok is false once every record was handed out.
func (s *PagedSource) Next(ctx context.Context) (export.Segmenter, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.offset >= len(s.records) {
		return nil, false, nil
	}

	end := s.offset + s.pageSize
	if end > len(s.records) {
		end = len(s.records)
	}
	page := &Page{index: s.index, records: s.records[s.offset:end]}
	s.offset = end
	s.index++
	return page, true, nil
}

// SegmentCount is the total number of pages the source yields.
func (s *PagedSource) SegmentCount() int {
	return (len(s.records) + s.pageSize - 1) / s.pageSize
}

// SyntheticRecords builds n records carrying only an "id" field, numbered from 1.
func SyntheticRecords(n int) []export.Record {
	records := make([]export.Record, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, export.Record{"id": i})
	}
	return records
}
