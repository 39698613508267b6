package remote

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"datalink/internal/domain"
	"datalink/internal/errs"
)

// queryFields projects the history columns; connection_id is a lookup whose
// referenced Name is fetched alongside the Id.
func queryFields() []Field {
	fields := Fields("Name", "sql", "executed_at", "execution_time", "row_count")
	return append(fields, Field{
		Field:          FieldName{Name: "connection_id"},
		ReferenceField: &Field{Field: FieldName{Name: "Name"}},
	})
}

// lookupID decodes a lookup field sent either as a bare id or as
// {"Id": n, "Name": ...}.
type lookupID int

func (l *lookupID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*l = lookupID(n)
		return nil
	}
	var ref struct {
		ID int `json:"Id"`
	}
	if err := json.Unmarshal(b, &ref); err != nil {
		return err
	}
	*l = lookupID(ref.ID)
	return nil
}

type queryRecord struct {
	ID            int       `json:"Id"`
	Name          string    `json:"Name"`
	SQL           string    `json:"sql"`
	ExecutedAt    time.Time `json:"executed_at"`
	ExecutionTime int       `json:"execution_time"`
	RowCount      int       `json:"row_count"`
	ConnectionID  lookupID  `json:"connection_id"`
}

func (r queryRecord) toDomain() domain.QueryRecord {
	q := domain.QueryRecord{
		ID:              strconv.Itoa(r.ID),
		Name:            r.Name,
		SQL:             r.SQL,
		ExecutedAt:      r.ExecutedAt,
		ExecutionTimeMs: r.ExecutionTime,
		RowCount:        r.RowCount,
	}
	if r.ConnectionID > 0 {
		q.ConnectionID = strconv.Itoa(int(r.ConnectionID))
	}
	return q
}

// QueryLogStore keeps the execution history in the "query" collection.
// Result rows are not stored remotely; records come back without them.
type QueryLogStore struct {
	client *Client
}

// NewQueryLogStore creates a QueryLogStore.
func NewQueryLogStore(client *Client) *QueryLogStore {
	return &QueryLogStore{client: client}
}

var _ domain.QueryLogStore = (*QueryLogStore)(nil)

// ListQueries returns history newest first.
func (s *QueryLogStore) ListQueries(ctx context.Context, f domain.QueryFilter) ([]domain.QueryRecord, error) {
	p := FetchParams{
		Fields:  queryFields(),
		OrderBy: []OrderBy{{FieldName: "executed_at", SortType: "DESC"}},
	}
	if f.ConnectionID != "" {
		p.Where = []Where{{FieldName: "connection_id", Operator: "EqualTo", Values: []string{f.ConnectionID}}}
	}
	if f.Limit > 0 {
		p.PagingInfo = &Paging{Limit: f.Limit}
	}
	resp, err := s.client.FetchRecords(ctx, CollectionQuery, p)
	if err != nil {
		return nil, err
	}
	var recs []queryRecord
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &recs); err != nil {
			return nil, errs.Wrap(errs.ErrKindOperationFailed, "decode queries", err)
		}
	}
	out := make([]domain.QueryRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *QueryLogStore) GetQuery(ctx context.Context, id string) (*domain.QueryRecord, error) {
	n, err := parseID("query", id)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.GetRecordByID(ctx, CollectionQuery, n, FetchParams{Fields: queryFields()})
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NotFound("query", id)
		}
		return nil, err
	}
	var rec queryRecord
	if err := json.Unmarshal(resp.Data, &rec); err != nil {
		return nil, errs.Wrap(errs.ErrKindOperationFailed, "decode query", err)
	}
	q := rec.toDomain()
	return &q, nil
}

// AppendQuery creates a history record and fills in the assigned id.
func (s *QueryLogStore) AppendQuery(ctx context.Context, q *domain.QueryRecord) error {
	rec := map[string]any{
		"Name":           q.Name,
		"sql":            q.SQL,
		"executed_at":    q.ExecutedAt.UTC().Format(time.RFC3339Nano),
		"execution_time": q.ExecutionTimeMs,
		"row_count":      q.RowCount,
		"connection_id":  nil,
	}
	if q.ConnectionID != "" {
		n, err := strconv.Atoi(q.ConnectionID)
		if err != nil {
			return errs.Validation("connection id %q is not a record id", q.ConnectionID)
		}
		rec["connection_id"] = n
	}
	resp, err := s.client.CreateRecord(ctx, CollectionQuery, rec)
	if err != nil {
		return err
	}
	if err := resp.Failures(); err != nil {
		return err
	}
	data, ok := resp.FirstSuccess()
	if !ok {
		return errs.New(errs.ErrKindOperationFailed, "create query: no record returned")
	}
	var saved struct {
		ID int `json:"Id"`
	}
	if err := json.Unmarshal(data, &saved); err != nil {
		return errs.Wrap(errs.ErrKindOperationFailed, "decode created query", err)
	}
	q.ID = strconv.Itoa(saved.ID)
	return nil
}

func (s *QueryLogStore) UpdateQueryMetrics(ctx context.Context, id string, executionTimeMs, rowCount int) error {
	n, err := parseID("query", id)
	if err != nil {
		return err
	}
	resp, err := s.client.UpdateRecord(ctx, CollectionQuery, map[string]any{
		"Id":             n,
		"execution_time": executionTimeMs,
		"row_count":      rowCount,
	})
	if err != nil {
		if errs.IsNotFound(err) {
			return errs.NotFound("query", id)
		}
		return err
	}
	return resp.Failures()
}

func (s *QueryLogStore) DeleteQuery(ctx context.Context, id string) error {
	if _, err := s.GetQuery(ctx, id); err != nil {
		return err
	}
	n, err := parseID("query", id)
	if err != nil {
		return err
	}
	resp, err := s.client.DeleteRecord(ctx, CollectionQuery, n)
	if err != nil {
		if errs.IsNotFound(err) {
			return errs.NotFound("query", id)
		}
		return err
	}
	return resp.Failures()
}
