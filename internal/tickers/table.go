package tickers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// UnknownSector is the placeholder reference data uses for unmapped symbols.
const UnknownSector = "Unknown"

// Table is a read-only ticker to sector lookup, built once at startup.
type Table struct {
	sectors map[string]string
}

// NewTable copies m into a Table.
func NewTable(m map[string]string) *Table {
	t := &Table{sectors: make(map[string]string, len(m))}
	for k, v := range m {
		t.sectors[k] = v
	}
	return t
}

// LoadTable reads a "ticker,sector" CSV. A header row is skipped, and rows
// with an empty sector are ignored.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticker map: %w", err)
	}
	defer f.Close()
	return ReadTable(f)
}

// ReadTable parses the CSV form read by LoadTable.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	t := &Table{sectors: make(map[string]string)}
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ticker map row %d: %w", row, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("ticker map row %d: want ticker,sector got %d fields", row, len(rec))
		}
		ticker := strings.TrimSpace(rec[0])
		sector := strings.TrimSpace(rec[1])
		if row == 1 && strings.EqualFold(ticker, "ticker") {
			continue
		}
		if ticker == "" || sector == "" {
			continue
		}
		t.sectors[ticker] = sector
	}
	return t, nil
}

// Len returns the number of mapped symbols.
func (t *Table) Len() int { return len(t.sectors) }

// Sector returns the sector for ticker. ok is false when the symbol is absent
// or mapped to the Unknown placeholder.
func (t *Table) Sector(ticker string) (sector string, ok bool) {
	s, found := t.sectors[ticker]
	if !found || strings.EqualFold(s, UnknownSector) {
		return "", false
	}
	return s, true
}

// SectorOr returns the sector for ticker or fallback.
func (t *Table) SectorOr(ticker, fallback string) string {
	if s, ok := t.Sector(ticker); ok {
		return s
	}
	return fallback
}
