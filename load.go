// FILE: load.go
// Package main – Delimited-file reader for candle exports.
//
// What's here:
//   • detectDelimiter(path) -> rune   : tab, semicolon or comma from the header line
//   • readTable(path) -> *rawTable    : header + string cells, no interpretation
//
// Notes:
//   • Column meaning is resolved later by the schema normalizer (schema.go);
//     this layer only splits text.
//   • Short rows are allowed; missing cells read as empty strings.

package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

const utf8BOM = "\ufeff"

// rawTable is the input exactly as split by the delimiter.
type rawTable struct {
	Header []string
	Rows   [][]string
	Delim  rune
}

// cell returns row[col] or "" when the row is short.
func (t *rawTable) cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// detectDelimiter inspects the first line: a tab wins outright, semicolons win
// when they outnumber commas, otherwise comma.
func detectDelimiter(firstLine string) rune {
	if strings.Contains(firstLine, "\t") {
		return '\t'
	}
	semi := strings.Count(firstLine, ";")
	if semi > 0 && semi > strings.Count(firstLine, ",") {
		return ';'
	}
	return ','
}

// readTable opens path, sniffs the delimiter and reads every record.
// A missing file is reported as ErrInputNotFound.
func readTable(path string) (*rawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("input file not found: %s: %w", path, ErrInputNotFound)
		}
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	delim := detectDelimiter(first)

	r := csv.NewReader(io.MultiReader(strings.NewReader(first), br))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Reason: "input has no header row"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	t := &rawTable{Header: header, Delim: delim}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		if isBlankRecord(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// isBlankRecord matches lines that carry only delimiters or whitespace.
func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
