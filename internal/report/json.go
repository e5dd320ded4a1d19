package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/docketrocket/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonReport adds derived fields to the serialized report.
type jsonReport struct {
	*model.RunReport
	Attempted      int     `json:"attempted"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Status         string  `json:"status"`
}

// Write outputs the report as JSON followed by a newline.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	v := jsonReport{
		RunReport:      report,
		Attempted:      report.Attempted(),
		ElapsedSeconds: report.Elapsed().Seconds(),
		Status:         statusText(report),
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
