// Package grafana renders nested set rows in the formats Grafana data
// sources accept: CSV, the data frame JSON envelope, and a plain JSON
// array.
package grafana

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/profilekit/foldconv/internal/nestedset"
)

const (
	FormatCSV        Format = "csv"
	FormatJSON       Format = "json"
	FormatJSONSimple Format = "json-simple"

	FieldTypeNumber FieldType = "number"
	FieldTypeString FieldType = "string"
)

type (
	Format    string
	FieldType string

	Field struct {
		Name string    `json:"name"`
		Type FieldType `json:"type"`
	}

	Schema struct {
		Fields []Field `json:"fields"`
	}

	// Data holds the row columns as parallel arrays, one entry per
	// schema field.
	Data struct {
		Values []interface{} `json:"values"`
	}

	DataFrame struct {
		Schema Schema `json:"schema"`
		Data   Data   `json:"data"`
	}

	QueryResult struct {
		Frames []DataFrame `json:"frames"`
	}

	// Response is the envelope a Grafana JSON data source expects:
	// results keyed by query ref ID, each carrying its data frames.
	Response struct {
		Results map[string]QueryResult `json:"results"`
	}
)

// ParseFormat validates a format name coming from a flag or a query
// parameter. The empty string means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatJSONSimple:
		return FormatJSONSimple, nil
	}
	return "", fmt.Errorf("unknown output format: %q", s)
}

// ContentType returns the MIME type to serve the format under.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Write renders rows in the given format.
func Write(w io.Writer, f Format, rows []nestedset.Row) error {
	switch f {
	case FormatJSON:
		return WriteDataFrame(w, rows)
	case FormatJSONSimple:
		return WriteRows(w, rows)
	default:
		return WriteCSV(w, rows)
	}
}

// WriteCSV writes rows as `level,value,self,label` lines. Labels are
// quote-wrapped with embedded quotes doubled; no other escaping is
// applied. Whole-number values always print without a decimal point,
// so a count written as "5.0" in the input serializes as 5.
func WriteCSV(w io.Writer, rows []nestedset.Row) error {
	if _, err := io.WriteString(w, "level,value,self,label\n"); err != nil {
		return err
	}
	for _, row := range rows {
		label := strings.ReplaceAll(row.Label, `"`, `""`)
		line := fmt.Sprintf("%d,%s,%s,\"%s\"\n",
			row.Level, formatValue(row.Value), formatValue(row.Self), label)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

// formatValue prints integral counts without a decimal point so that
// integer sample counts round-trip unchanged.
func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewResponse builds the data frame envelope for a single query named
// "A", the ref ID Grafana assigns to the first query of a panel.
func NewResponse(rows []nestedset.Row) Response {
	levels := make([]float64, len(rows))
	values := make([]float64, len(rows))
	selfs := make([]float64, len(rows))
	labels := make([]string, len(rows))
	for i, row := range rows {
		levels[i] = float64(row.Level)
		values[i] = row.Value
		selfs[i] = row.Self
		labels[i] = row.Label
	}

	frame := DataFrame{
		Schema: Schema{
			Fields: []Field{
				{Name: "level", Type: FieldTypeNumber},
				{Name: "value", Type: FieldTypeNumber},
				{Name: "self", Type: FieldTypeNumber},
				{Name: "label", Type: FieldTypeString},
			},
		},
		Data: Data{
			Values: []interface{}{levels, values, selfs, labels},
		},
	}
	return Response{
		Results: map[string]QueryResult{
			"A": {Frames: []DataFrame{frame}},
		},
	}
}

// WriteDataFrame writes rows as an indented data frame JSON document.
func WriteDataFrame(w io.Writer, rows []nestedset.Row) error {
	return writeIndented(w, NewResponse(rows))
}

// WriteRows writes rows as an indented JSON array of row objects.
func WriteRows(w io.Writer, rows []nestedset.Row) error {
	return writeIndented(w, rows)
}

func writeIndented(w io.Writer, v interface{}) error {
	b, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
