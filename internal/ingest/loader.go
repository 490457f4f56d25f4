package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/logger"
)

// Loader reads one tabular file format into a Dataset.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (*dataset.Dataset, error)
}

// Options tune loading. Zero values pick sensible defaults.
type Options struct {
	// Delimiter for delimited text. 0 picks by extension (',' or '\t').
	Delimiter rune
	// Sheet selects a workbook sheet by name; empty means the first sheet.
	Sheet string
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) { registry = append(registry, l) }

// ErrUnsupported indicates no loader accepts the file.
var ErrUnsupported = errors.New("unsupported file format")

// Load picks a loader by filename and reads path.
func Load(path string, opt Options) (*dataset.Dataset, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			ds, err := l.Load(path, opt)
			if err != nil {
				return nil, err
			}
			logger.L.Debugw("file loaded", "path", path, "rows", ds.Rows(), "columns", ds.Width())
			return ds, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

func hasExt(name string, exts ...string) bool {
	name = strings.ToLower(name)
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}
