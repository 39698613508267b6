package export

import (
	"context"
	"io"

	"datalink/internal/domain"
	"datalink/internal/errs"
)

// Job describes one export of a stored result set.
type Job struct {
	Format Format
	// MaxRows caps the exported rows. Zero means no cap.
	MaxRows int
	// Columns restricts and orders the output. Empty keeps every column.
	Columns []string
}

// Result is the outcome of an export.
type Result struct {
	Format      Format `json:"format"`
	ContentType string `json:"contentType"`
	RowsRead    int    `json:"rowsRead"`
	RowsWritten int    `json:"rowsWritten"`
	Truncated   bool   `json:"truncated"`
}

// Run pushes q's rows through the job's transform chain and writes them
// to w.
func Run(ctx context.Context, q *domain.QueryRecord, job Job, w io.Writer) (*Result, error) {
	dest, err := DestinationFor(job.Format)
	if err != nil {
		return nil, err
	}
	if len(q.Columns) == 0 && len(q.Rows) == 0 {
		return nil, errs.Validation("query %s has no result set to export", q.ID)
	}

	schema := schemaOf(q)
	var transformers []Transformer
	if len(job.Columns) > 0 {
		schema = schema.Project(job.Columns)
		if len(schema.Columns) == 0 {
			return nil, errs.Validation("none of the requested columns exist")
		}
		transformers = append(transformers, &SelectTransform{Columns: schema.Columns})
	}
	if job.MaxRows > 0 {
		transformers = append(transformers, NewLimitTransform(job.MaxRows))
	}

	result := &Result{Format: job.Format, ContentType: dest.ContentType()}
	records := make([]Record, 0, len(q.Rows))
	for _, row := range q.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.RowsRead++
		rec, keep := ApplyTransformers(Record{Data: row}, transformers)
		if keep {
			records = append(records, rec)
		}
	}
	result.RowsWritten = len(records)
	result.Truncated = result.RowsWritten < result.RowsRead

	if err := dest.Write(w, schema, records); err != nil {
		return nil, errs.OperationFailed("write export", err)
	}
	return result, nil
}
