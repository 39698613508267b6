package domain

import (
	"context"
	"time"
)

// Row is one result row keyed by column name. Values are scalars or nil.
type Row map[string]any

// QueryRecord is one entry of the query history.
type QueryRecord struct {
	ID              string    `json:"id"`
	ConnectionID    string    `json:"connectionId"`
	Name            string    `json:"name"`
	SQL             string    `json:"sql"`
	ExecutedAt      time.Time `json:"executedAt"`
	ExecutionTimeMs int       `json:"executionTime"`
	RowCount        int       `json:"rowCount"`
	Columns         []string  `json:"columns,omitempty"`
	Rows            []Row     `json:"data,omitempty"`
	Message         string    `json:"message,omitempty"`
}

// IsDraft reports whether q was saved without being run: it carries no
// timing, no result set and no message.
func (q *QueryRecord) IsDraft() bool {
	return q.ExecutionTimeMs == 0 && q.RowCount == 0 && q.Message == "" &&
		len(q.Columns) == 0 && len(q.Rows) == 0
}

// Clone returns a deep copy of q.
func (q *QueryRecord) Clone() *QueryRecord {
	out := *q
	if q.Columns != nil {
		out.Columns = append([]string(nil), q.Columns...)
	}
	if q.Rows != nil {
		out.Rows = make([]Row, len(q.Rows))
		for i, r := range q.Rows {
			cp := make(Row, len(r))
			for k, v := range r {
				cp[k] = v
			}
			out.Rows[i] = cp
		}
	}
	return &out
}

// QueryFilter narrows a history listing. Zero values mean no restriction.
type QueryFilter struct {
	ConnectionID string
	Limit        int
}

// QueryLogStore keeps the query history. ListQueries returns records ordered
// by ExecutedAt, most recent first.
type QueryLogStore interface {
	ListQueries(ctx context.Context, f QueryFilter) ([]QueryRecord, error)
	GetQuery(ctx context.Context, id string) (*QueryRecord, error)
	AppendQuery(ctx context.Context, q *QueryRecord) error
	UpdateQueryMetrics(ctx context.Context, id string, executionTimeMs, rowCount int) error
	DeleteQuery(ctx context.Context, id string) error
}
