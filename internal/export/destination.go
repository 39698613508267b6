package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"datalink/internal/errs"
)

// ── Destination ────────────────────────────────────────────
// A Destination encodes the transformed records onto a writer.

// Format names an export encoding. Values match the results.exportFormat
// setting.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Destination writes records in one format.
type Destination interface {
	ContentType() string
	Write(w io.Writer, schema Schema, records []Record) error
}

// DestinationFor returns the encoder for f.
func DestinationFor(f Format) (Destination, error) {
	switch f {
	case FormatCSV:
		return csvDestination{}, nil
	case FormatJSON:
		return jsonDestination{}, nil
	case FormatXLSX:
		return nil, errs.Validation("xlsx export is not supported, use csv or json")
	}
	return nil, errs.Validation("unknown export format %q", string(f))
}

type csvDestination struct{}

func (csvDestination) ContentType() string { return "text/csv; charset=utf-8" }

func (csvDestination) Write(w io.Writer, schema Schema, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Columns); err != nil {
		return err
	}
	line := make([]string, len(schema.Columns))
	for _, rec := range records {
		for i, col := range schema.Columns {
			line[i] = formatValue(rec.Data[col])
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonDestination struct{}

func (jsonDestination) ContentType() string { return "application/json" }

func (jsonDestination) Write(w io.Writer, _ Schema, records []Record) error {
	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		rows[i] = rec.Data
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
