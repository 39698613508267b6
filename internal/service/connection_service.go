package service

import (
	"context"
	"strings"
	"sync"

	"datalink/internal/dbclient"
	"datalink/internal/domain"
	"datalink/internal/errs"
	"datalink/internal/logger"
	"datalink/internal/secret"
	"datalink/internal/simulate"
)

// ─────────────────────────────────────────────────────────────
// Connection Service: profiles and the single-active invariant
// ─────────────────────────────────────────────────────────────

// ConnectionInput is the DTO for creating or testing a connection.
type ConnectionInput struct {
	Name     string              `json:"name"`
	Kind     domain.DatabaseKind `json:"type"`
	Host     string              `json:"host"`
	Port     *int                `json:"port"`
	Database string              `json:"database"`
	Username string              `json:"username"`
	Password string              `json:"password,omitempty"`
}

// NewConnectionInput returns the form defaults: postgresql on 5432.
func NewConnectionInput() ConnectionInput {
	return ConnectionInput{Kind: domain.KindPostgreSQL, Port: domain.DefaultPort(domain.KindPostgreSQL)}
}

// WithKind switches the kind. The port follows the kind's conventional
// default unless it holds a custom value.
func (in ConnectionInput) WithKind(kind domain.DatabaseKind) ConnectionInput {
	in.Port = portForKind(in.Kind, kind, in.Port)
	in.Kind = kind
	return in
}

// portForKind keeps a custom port and otherwise returns next's default.
func portForKind(prev, next domain.DatabaseKind, current *int) *int {
	if next == domain.KindSQLite {
		return nil
	}
	if current == nil {
		return domain.DefaultPort(next)
	}
	if def := domain.DefaultPort(prev); def != nil && *def == *current {
		return domain.DefaultPort(next)
	}
	p := *current
	return &p
}

// ConnectionPatch is a partial update. Nil fields are left unchanged.
// Activation state is not patchable; use Activate.
type ConnectionPatch struct {
	Name     *string              `json:"name,omitempty"`
	Kind     *domain.DatabaseKind `json:"type,omitempty"`
	Host     *string              `json:"host,omitempty"`
	Port     *int                 `json:"port,omitempty"`
	Database *string              `json:"database,omitempty"`
	Username *string              `json:"username,omitempty"`
	Password *string              `json:"password,omitempty"`
}

// TestResult is the outcome of a connection test.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Driver  string `json:"driver"`
}

// ConnectionService manages connection profiles and activation.
type ConnectionService struct {
	store   domain.ConnectionStore
	secrets secret.SecretStore
	sim     *simulate.Simulator
	emitter EventEmitter
	log     *logger.Logger
	schema  SchemaCache

	activateMu sync.Mutex
}

// SchemaCache drops cached schema snapshots. *SchemaService implements it.
type SchemaCache interface {
	Forget(connectionID string)
}

// NewConnectionService creates a ConnectionService. secrets may be nil.
func NewConnectionService(
	store domain.ConnectionStore,
	secrets secret.SecretStore,
	sim *simulate.Simulator,
	emitter EventEmitter,
	log *logger.Logger,
) *ConnectionService {
	return &ConnectionService{
		store:   store,
		secrets: secrets,
		sim:     sim,
		emitter: emitter,
		log:     log.With().Str("component", "connections").Logger(),
	}
}

// UseSchemaCache makes Update and Remove drop the connection's cached
// schema snapshot.
func (s *ConnectionService) UseSchemaCache(c SchemaCache) {
	s.schema = c
}

func (s *ConnectionService) forgetSchema(id string) {
	if s.schema != nil {
		s.schema.Forget(id)
	}
}

// ── Queries ────────────────────────────────────────────────

func (s *ConnectionService) List(ctx context.Context) ([]domain.Connection, error) {
	conns, err := s.store.ListConnections(ctx)
	if err != nil {
		return nil, err
	}
	for i := range conns {
		conns[i].HasPassword = s.hasPassword(conns[i].ID)
	}
	return conns, nil
}

func (s *ConnectionService) Get(ctx context.Context, id string) (*domain.Connection, error) {
	c, err := s.store.GetConnection(ctx, id)
	if err != nil {
		return nil, err
	}
	c.HasPassword = s.hasPassword(c.ID)
	return c, nil
}

// Active returns the active connection, or nil when none is active.
func (s *ConnectionService) Active(ctx context.Context) (*domain.Connection, error) {
	conns, err := s.store.ListConnections(ctx)
	if err != nil {
		return nil, err
	}
	for i := range conns {
		if conns[i].IsActive {
			c := conns[i]
			c.HasPassword = s.hasPassword(c.ID)
			return &c, nil
		}
	}
	return nil, nil
}

// DSN returns the connection string for id with the password masked.
func (s *ConnectionService) DSN(ctx context.Context, id string) (string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return dbclient.DisplayDSN(c, c.HasPassword)
}

// ── Mutations ──────────────────────────────────────────────

func (s *ConnectionService) Create(ctx context.Context, in ConnectionInput) (*domain.Connection, error) {
	c := &domain.Connection{
		Name:     strings.TrimSpace(in.Name),
		Kind:     in.Kind,
		Host:     strings.TrimSpace(in.Host),
		Port:     in.Port,
		Database: strings.TrimSpace(in.Database),
		Username: strings.TrimSpace(in.Username),
	}
	if err := validateConnection(c); err != nil {
		return nil, err
	}
	if err := s.store.CreateConnection(ctx, c); err != nil {
		return nil, err
	}
	if in.Password != "" {
		if err := s.setPassword(c.ID, in.Password); err != nil {
			if derr := s.store.DeleteConnection(ctx, c.ID); derr != nil {
				s.log.WarnWith("roll back connection", derr, map[string]any{"connection_id": c.ID})
			}
			return nil, err
		}
	}
	c.HasPassword = s.hasPassword(c.ID)

	s.log.With().Str("connection_id", c.ID).Str("type", string(c.Kind)).Logger().Info("connection created")
	s.emitter.Emit(ctx, EventConnectionsChanged, nil)
	return c, nil
}

func (s *ConnectionService) Update(ctx context.Context, id string, patch ConnectionPatch) (*domain.Connection, error) {
	c, err := s.store.GetConnection(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Kind != nil && *patch.Kind != c.Kind {
		if patch.Port == nil {
			c.Port = portForKind(c.Kind, *patch.Kind, c.Port)
		}
		c.Kind = *patch.Kind
	}
	if patch.Host != nil {
		c.Host = strings.TrimSpace(*patch.Host)
	}
	if patch.Port != nil {
		p := *patch.Port
		c.Port = &p
	}
	if patch.Database != nil {
		c.Database = strings.TrimSpace(*patch.Database)
	}
	if patch.Username != nil {
		c.Username = strings.TrimSpace(*patch.Username)
	}
	if err := validateConnection(c); err != nil {
		return nil, err
	}
	if patch.Password != nil && *patch.Password != "" {
		if err := s.setPassword(id, *patch.Password); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateConnection(ctx, c); err != nil {
		return nil, err
	}
	if patch.Password != nil && *patch.Password == "" {
		s.deletePassword(id)
	}
	c.HasPassword = s.hasPassword(id)
	s.forgetSchema(id)

	s.emitter.Emit(ctx, EventConnectionsChanged, nil)
	return c, nil
}

// Remove deletes a connection. Its query history is kept.
func (s *ConnectionService) Remove(ctx context.Context, id string) error {
	if err := s.store.DeleteConnection(ctx, id); err != nil {
		return err
	}
	s.deletePassword(id)
	s.forgetSchema(id)
	s.log.With().Str("connection_id", id).Logger().Info("connection removed")
	s.emitter.Emit(ctx, EventConnectionsChanged, nil)
	return nil
}

// Activate makes id the only active connection and stamps lastConnectedAt.
//
// Stores implementing domain.ExclusiveActivator do it atomically. Otherwise
// the target is activated first and every other active connection is then
// deactivated one by one; individual failures are logged and skipped, so
// under partial failure more than one connection may stay active until the
// next successful activation.
func (s *ConnectionService) Activate(ctx context.Context, id string) (*domain.Connection, error) {
	s.activateMu.Lock()
	defer s.activateMu.Unlock()

	if _, err := s.store.GetConnection(ctx, id); err != nil {
		return nil, err
	}
	if err := s.sim.Connect(ctx); err != nil {
		return nil, err
	}
	now := s.sim.Now().UTC()

	if ex, ok := s.store.(domain.ExclusiveActivator); ok {
		if err := ex.ActivateExclusive(ctx, id, now); err != nil {
			return nil, connectFailed(err)
		}
	} else {
		if err := s.store.SetActive(ctx, id, true, &now); err != nil {
			return nil, connectFailed(err)
		}
		s.deactivateOthers(ctx, id)
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, connectFailed(err)
	}
	c.IsActive = true

	s.log.With().Str("connection_id", id).Logger().Info("connection activated")
	s.emitter.Emit(ctx, EventConnectionActive, c.ID)
	s.emitter.Emit(ctx, EventConnectionsChanged, nil)
	return c, nil
}

func (s *ConnectionService) deactivateOthers(ctx context.Context, id string) {
	conns, err := s.store.ListConnections(ctx)
	if err != nil {
		s.log.WarnWith("list connections for deactivation", err, map[string]any{"connection_id": id})
		return
	}
	for _, other := range conns {
		if other.ID == id || !other.IsActive {
			continue
		}
		if err := s.store.SetActive(ctx, other.ID, false, nil); err != nil {
			s.log.WarnWith("deactivate connection", err, map[string]any{"connection_id": other.ID})
		}
	}
}

// Deactivate clears the active flag on id.
func (s *ConnectionService) Deactivate(ctx context.Context, id string) (*domain.Connection, error) {
	if err := s.store.SetActive(ctx, id, false, nil); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventConnectionsChanged, nil)
	return s.Get(ctx, id)
}

// Test validates in, builds its DSN and runs the simulated round-trip.
func (s *ConnectionService) Test(ctx context.Context, in ConnectionInput) (*TestResult, error) {
	c := &domain.Connection{
		Name:     strings.TrimSpace(in.Name),
		Kind:     in.Kind,
		Host:     strings.TrimSpace(in.Host),
		Port:     in.Port,
		Database: strings.TrimSpace(in.Database),
		Username: strings.TrimSpace(in.Username),
	}
	if c.Name == "" {
		c.Name = "test"
	}
	if err := validateConnection(c); err != nil {
		return nil, err
	}
	return s.test(ctx, c, in.Password)
}

// TestSaved runs the simulated round-trip for a stored connection.
func (s *ConnectionService) TestSaved(ctx context.Context, id string) (*TestResult, error) {
	c, err := s.store.GetConnection(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.test(ctx, c, s.password(id))
}

func (s *ConnectionService) test(ctx context.Context, c *domain.Connection, password string) (*TestResult, error) {
	driver, _, err := dbclient.BuildDSN(c, password)
	if err != nil {
		return nil, err
	}
	ok, err := s.sim.Test(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.ErrKindOperationFailed, "connection test failed")
	}
	return &TestResult{Success: true, Message: "Connection successful", Driver: driver}, nil
}

// ── Helpers ────────────────────────────────────────────────

func validateConnection(c *domain.Connection) error {
	if c.Name == "" {
		return errs.Validation("name is required")
	}
	if !c.Kind.Valid() {
		return errs.Validation("unsupported database type: %q", c.Kind)
	}
	if c.Database == "" {
		return errs.Validation("database is required")
	}
	if c.Kind == domain.KindSQLite {
		c.Port = nil
		return nil
	}
	if c.Host == "" {
		return errs.Validation("host is required")
	}
	if c.Port == nil {
		return errs.Validation("port is required")
	}
	if *c.Port < 1 || *c.Port > 65535 {
		return errs.Validation("port must be between 1 and 65535")
	}
	if c.Username == "" {
		return errs.Validation("username is required")
	}
	return nil
}

func connectFailed(err error) error {
	if errs.IsNotFound(err) {
		return err
	}
	return errs.Wrap(errs.ErrKindOperationFailed, "connection failed", err)
}

func (s *ConnectionService) password(id string) string {
	if s.secrets == nil {
		return ""
	}
	v, err := s.secrets.Get(secret.ConnectionKey(id))
	if err != nil {
		s.log.WarnWith("read password", err, map[string]any{"connection_id": id})
		return ""
	}
	return string(v)
}

func (s *ConnectionService) hasPassword(id string) bool {
	return s.password(id) != ""
}

// setPassword fails with OperationFailed when a password was supplied but no
// secret store can keep it.
func (s *ConnectionService) setPassword(id, pw string) error {
	if s.secrets == nil {
		return errs.New(errs.ErrKindOperationFailed, "no secret store configured for passwords")
	}
	if err := s.secrets.Set(secret.ConnectionKey(id), []byte(pw)); err != nil {
		s.log.ErrorWith("store password", err, map[string]any{"connection_id": id})
		return errs.OperationFailed("store password", err)
	}
	return nil
}

func (s *ConnectionService) deletePassword(id string) {
	if s.secrets == nil {
		return
	}
	if err := s.secrets.Delete(secret.ConnectionKey(id)); err != nil {
		s.log.WarnWith("delete password", err, map[string]any{"connection_id": id})
	}
}
