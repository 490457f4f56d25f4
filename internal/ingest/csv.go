package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/logger"
	"golang.org/x/text/encoding/charmap"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool { return hasExt(filename, ".csv", ".tsv", ".txt") }

func (csvLoader) Load(path string, opt Options) (*dataset.Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
		if hasExt(path, ".tsv") {
			delim = '\t'
		}
	}
	return ReadCSV(bytes.NewReader(b), delim)
}

// DecodeText returns b as UTF-8. Input that is not valid UTF-8 is decoded as
// Latin-1. A leading UTF-8 byte order mark is removed.
func DecodeText(b []byte) ([]byte, bool, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if utf8.Valid(b) {
		return b, false, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return nil, true, fmt.Errorf("decode latin-1: %w", err)
	}
	return out, true, nil
}

// ReadCSV parses delimited text with a header row.
func ReadCSV(r io.Reader, delim rune) (*dataset.Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	text, latin1, err := DecodeText(raw)
	if err != nil {
		return nil, err
	}
	if latin1 {
		logger.L.Infow("input is not valid UTF-8, decoded as latin-1")
	}
	cr := csv.NewReader(bytes.NewReader(text))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(recs) == 0 {
		return dataset.Empty(), nil
	}
	return dataset.FromRecords(recs[0], recs[1:])
}
