// Package output provides record output formatters.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-variants/internal/variant"
)

// TabWriter writes classified records in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Key",
			"Location",
			"End",
			"Reference",
			"Alternate",
			"Type",
			"Length",
			"Existing_variation",
			"Sources",
			"Error",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single record. A non-nil classification error is reported
// in the last column and leaves the type empty.
func (tw *TabWriter) Write(v *variant.Variant, classifyErr error) error {
	typ := "-"
	errCol := "-"
	if classifyErr != nil {
		errCol = classifyErr.Error()
	} else if v.Type != "" {
		typ = v.Type.String()
	}

	sources := make([]string, 0, len(v.SourceEntries))
	for _, e := range v.SourceEntries {
		sources = append(sources, e.StudyID+":"+e.FileID)
	}

	values := []string{
		v.Key(),
		v.Chromosome + ":" + strconv.FormatInt(v.Start, 10),
		strconv.FormatInt(v.End, 10),
		dash(v.Reference),
		dash(v.Alternate),
		typ,
		strconv.FormatInt(v.Length, 10),
		dash(strings.Join(v.IDs, ",")),
		dash(strings.Join(sources, ",")),
		errCol,
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
