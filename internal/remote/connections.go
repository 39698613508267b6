package remote

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"datalink/internal/domain"
	"datalink/internal/errs"
)

var connectionFields = []string{"Name", "type", "host", "port", "database", "username", "is_active", "last_connected"}

type connectionRecord struct {
	ID            int        `json:"Id"`
	Name          string     `json:"Name"`
	Type          string     `json:"type"`
	Host          string     `json:"host"`
	Port          *int       `json:"port"`
	Database      string     `json:"database"`
	Username      string     `json:"username"`
	IsActive      bool       `json:"is_active"`
	LastConnected *time.Time `json:"last_connected"`
	CreatedOn     *time.Time `json:"CreatedOn"`
	ModifiedOn    *time.Time `json:"ModifiedOn"`
}

func (r connectionRecord) toDomain() domain.Connection {
	c := domain.Connection{
		ID:              strconv.Itoa(r.ID),
		Name:            r.Name,
		Kind:            domain.DatabaseKind(r.Type),
		Host:            r.Host,
		Port:            r.Port,
		Database:        r.Database,
		Username:        r.Username,
		IsActive:        r.IsActive,
		LastConnectedAt: r.LastConnected,
	}
	if r.CreatedOn != nil {
		c.CreatedAt = *r.CreatedOn
	}
	if r.ModifiedOn != nil {
		c.UpdatedAt = *r.ModifiedOn
	}
	return c
}

// ConnectionStore keeps connection profiles in the "connection" collection.
// It has no atomic activation; the service falls back to activating one
// record and then deactivating the others.
type ConnectionStore struct {
	client *Client
	now    func() time.Time
}

// NewConnectionStore creates a ConnectionStore.
func NewConnectionStore(client *Client) *ConnectionStore {
	return &ConnectionStore{client: client, now: time.Now}
}

var _ domain.ConnectionStore = (*ConnectionStore)(nil)

func (s *ConnectionStore) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	resp, err := s.client.FetchRecords(ctx, CollectionConnection, FetchParams{Fields: Fields(connectionFields...)})
	if err != nil {
		return nil, err
	}
	var recs []connectionRecord
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &recs); err != nil {
			return nil, errs.Wrap(errs.ErrKindOperationFailed, "decode connections", err)
		}
	}
	out := make([]domain.Connection, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *ConnectionStore) GetConnection(ctx context.Context, id string) (*domain.Connection, error) {
	n, err := parseID("connection", id)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.GetRecordByID(ctx, CollectionConnection, n, FetchParams{Fields: Fields(connectionFields...)})
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NotFound("connection", id)
		}
		return nil, err
	}
	var rec connectionRecord
	if err := json.Unmarshal(resp.Data, &rec); err != nil {
		return nil, errs.Wrap(errs.ErrKindOperationFailed, "decode connection", err)
	}
	c := rec.toDomain()
	return &c, nil
}

// CreateConnection inserts c as inactive and fills in the assigned id.
func (s *ConnectionStore) CreateConnection(ctx context.Context, c *domain.Connection) error {
	resp, err := s.client.CreateRecord(ctx, CollectionConnection, map[string]any{
		"Name":           c.Name,
		"type":           string(c.Kind),
		"host":           c.Host,
		"port":           c.Port,
		"database":       c.Database,
		"username":       c.Username,
		"is_active":      false,
		"last_connected": nil,
	})
	if err != nil {
		return err
	}
	if err := resp.Failures(); err != nil {
		return err
	}
	data, ok := resp.FirstSuccess()
	if !ok {
		return errs.New(errs.ErrKindOperationFailed, "create connection: no record returned")
	}
	var rec connectionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return errs.Wrap(errs.ErrKindOperationFailed, "decode created connection", err)
	}
	now := s.now().UTC()
	c.ID = strconv.Itoa(rec.ID)
	c.IsActive = false
	c.LastConnectedAt = nil
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// UpdateConnection replaces the profile fields of c.
func (s *ConnectionStore) UpdateConnection(ctx context.Context, c *domain.Connection) error {
	n, err := parseID("connection", c.ID)
	if err != nil {
		return err
	}
	c.UpdatedAt = s.now().UTC()
	return s.update(ctx, c.ID, map[string]any{
		"Id":       n,
		"Name":     c.Name,
		"type":     string(c.Kind),
		"host":     c.Host,
		"port":     c.Port,
		"database": c.Database,
		"username": c.Username,
	})
}

// SetActive sends a partial update of the activation fields.
func (s *ConnectionStore) SetActive(ctx context.Context, id string, active bool, connectedAt *time.Time) error {
	n, err := parseID("connection", id)
	if err != nil {
		return err
	}
	rec := map[string]any{"Id": n, "is_active": active}
	if connectedAt != nil {
		rec["last_connected"] = connectedAt.UTC().Format(time.RFC3339Nano)
	}
	return s.update(ctx, id, rec)
}

func (s *ConnectionStore) update(ctx context.Context, id string, rec map[string]any) error {
	resp, err := s.client.UpdateRecord(ctx, CollectionConnection, rec)
	if err != nil {
		if errs.IsNotFound(err) {
			return errs.NotFound("connection", id)
		}
		return err
	}
	return resp.Failures()
}

// DeleteConnection looks the record up first; the delete call reports an
// unknown id only as a per-record failure.
func (s *ConnectionStore) DeleteConnection(ctx context.Context, id string) error {
	if _, err := s.GetConnection(ctx, id); err != nil {
		return err
	}
	n, err := parseID("connection", id)
	if err != nil {
		return err
	}
	resp, err := s.client.DeleteRecord(ctx, CollectionConnection, n)
	if err != nil {
		if errs.IsNotFound(err) {
			return errs.NotFound("connection", id)
		}
		return err
	}
	return resp.Failures()
}
