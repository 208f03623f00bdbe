package serde

import (
	"fmt"

	"github.com/fornaix/presto-db/pkg/sqltypes"
)

// Page is a columnar batch of rows. Each column block holds the
// concatenated value encodings for that column, one per row.
type Page struct {
	Types   []sqltypes.Type
	NumRows int
	Columns [][]byte
}

// BatchingPolicy controls how rows are grouped into pages.
type BatchingPolicy struct {
	// MaxRowsPerPage caps the number of rows in a single page.
	MaxRowsPerPage int
	// MaxPageBytes caps the total size of the column blocks of a single
	// page. A page always holds at least one row, even if that row alone
	// exceeds the cap.
	MaxPageBytes int
}

// DefaultBatchingPolicy mirrors the page sizing used by remote tasks.
var DefaultBatchingPolicy = BatchingPolicy{
	MaxRowsPerPage: 1024,
	MaxPageBytes:   1 << 20,
}

// TransformRowsToPages groups rows into columnar pages according to policy.
// The rows slice is read in a single forward pass; rows of zero columns are
// rejected at the type level (types must be non-empty for pages to carry
// positions). An empty input produces no pages.
func TransformRowsToPages(rows []Row, types []sqltypes.Type, policy BatchingPolicy) ([]Page, error) {
	if policy.MaxRowsPerPage <= 0 {
		policy.MaxRowsPerPage = DefaultBatchingPolicy.MaxRowsPerPage
	}
	if policy.MaxPageBytes <= 0 {
		policy.MaxPageBytes = DefaultBatchingPolicy.MaxPageBytes
	}

	var (
		pages []Page
		page  = newPage(types)
	)
	for _, row := range rows {
		if err := page.appendRow(row); err != nil {
			return nil, err
		}
		if page.NumRows >= policy.MaxRowsPerPage || page.size() >= policy.MaxPageBytes {
			pages = append(pages, page)
			page = newPage(types)
		}
	}
	if page.NumRows > 0 {
		pages = append(pages, page)
	}
	return pages, nil
}

// TransformPagesToRows flattens columnar pages back into rows, preserving
// row order within and across pages.
func TransformPagesToRows(pages []Page) ([]Row, error) {
	var rows []Row
	for _, page := range pages {
		pageRows, err := page.rows()
		if err != nil {
			return nil, err
		}
		rows = append(rows, pageRows...)
	}
	return rows, nil
}

func newPage(types []sqltypes.Type) Page {
	return Page{Types: types, Columns: make([][]byte, len(types))}
}

// appendRow splits the encoded row into per-column segments and appends each
// segment to its column block.
func (p *Page) appendRow(row Row) error {
	if row.Length > len(row.Data) {
		return fmt.Errorf("appending row: length %d exceeds %d available bytes", row.Length, len(row.Data))
	}
	buf := row.Data[:row.Length]
	for i, t := range p.Types {
		n, err := sqltypes.ValueSize(t, buf)
		if err != nil {
			return err
		}
		p.Columns[i] = append(p.Columns[i], buf[:n]...)
		buf = buf[n:]
	}
	if len(buf) != 0 {
		return fmt.Errorf("appending row: %d trailing bytes after %d columns", len(buf), len(p.Types))
	}
	p.NumRows++
	return nil
}

func (p *Page) size() int {
	var n int
	for _, col := range p.Columns {
		n += len(col)
	}
	return n
}

// rows rebuilds the row-major representation of the page.
func (p *Page) rows() ([]Row, error) {
	var (
		offsets = make([]int, len(p.Columns))
		rows    = make([]Row, 0, p.NumRows)
	)
	for r := 0; r < p.NumRows; r++ {
		var buf []byte
		for i, t := range p.Types {
			col := p.Columns[i][offsets[i]:]
			n, err := sqltypes.ValueSize(t, col)
			if err != nil {
				return nil, fmt.Errorf("page row %d: %w", r, err)
			}
			buf = append(buf, col[:n]...)
			offsets[i] += n
		}
		rows = append(rows, Row{Data: buf, Length: len(buf)})
	}
	return rows, nil
}
