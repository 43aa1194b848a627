package codec

import (
	"fmt"
	"io"
	"sort"

	"ipnetlab/internal/domain"
)

// Importer interface for reading snapshots back from exported files
type Importer interface {
	Parse(r io.Reader) (*domain.Snapshot, error)
	Format() string
}

// Exporter interface for exporting snapshots to various formats
type Exporter interface {
	Export(snap *domain.Snapshot, w io.Writer) error
	Format() string
	ContentType() string
}

var exporters = map[string]Exporter{
	"json":   NewJSONCodec(),
	"yaml":   NewYAMLCodec(),
	"topodb": NewTopologyDBCodec(),
	"xlsx":   NewXLSXCodec(),
}

// ExporterFor returns the exporter of a format
func ExporterFor(format string) (Exporter, error) {
	if format == "yml" {
		format = "yaml"
	}
	e, ok := exporters[format]
	if !ok {
		return nil, fmt.Errorf("unknown export format %q (want one of %v)", format, Formats())
	}
	return e, nil
}

// ImporterFor returns the importer of a format
func ImporterFor(format string) (Importer, error) {
	e, err := ExporterFor(format)
	if err != nil {
		return nil, err
	}
	i, ok := e.(Importer)
	if !ok {
		return nil, fmt.Errorf("format %q cannot be imported", format)
	}
	return i, nil
}

// Formats lists the export formats, sorted
func Formats() []string {
	out := make([]string, 0, len(exporters))
	for f := range exporters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
