package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"strata/backend/internal/model"
)

type stubConnectionRepo struct {
	mu     sync.Mutex
	nextID int64
	conns  map[int64]model.Connection
}

func newStubConnectionRepo() *stubConnectionRepo {
	return &stubConnectionRepo{conns: make(map[int64]model.Connection)}
}

func (r *stubConnectionRepo) Create(ctx context.Context, conn model.Connection) (model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	conn.ID = r.nextID
	now := time.Now().UTC()
	conn.CreatedAt = now
	conn.UpdatedAt = now
	r.conns[conn.ID] = conn
	return conn, nil
}

func (r *stubConnectionRepo) GetByID(ctx context.Context, id int64) (model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if !ok {
		return model.Connection{}, sql.ErrNoRows
	}
	return conn, nil
}

func (r *stubConnectionRepo) FindByName(ctx context.Context, name string) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conn := range r.conns {
		if conn.Name == name {
			return &conn, nil
		}
	}
	return nil, nil
}

func (r *stubConnectionRepo) List(ctx context.Context) ([]model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var conns []model.Connection
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns, nil
}

func (r *stubConnectionRepo) Update(ctx context.Context, conn model.Connection) (model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.conns[conn.ID]
	if !ok {
		return model.Connection{}, sql.ErrNoRows
	}
	existing.Name = conn.Name
	existing.Kind = conn.Kind
	existing.Config = conn.Config
	existing.UpdatedAt = time.Now().UTC()
	r.conns[conn.ID] = existing
	return existing, nil
}

func (r *stubConnectionRepo) UpdateHealth(ctx context.Context, id int64, health string, errorMessage *string, checkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if !ok {
		return sql.ErrNoRows
	}
	conn.LastHealth = health
	conn.LastError = errorMessage
	conn.LastCheckedAt = &checkedAt
	r.conns[id] = conn
	return nil
}

func (r *stubConnectionRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.conns, id)
	return nil
}

type stubMetadataService struct {
	mu          sync.Mutex
	callErr     error
	calls       []string
	invalidated []int64
}

func (s *stubMetadataService) Call(ctx context.Context, connectionID int64, method string, params map[string]any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, method)
	if s.callErr != nil {
		return nil, s.callErr
	}
	return json.RawMessage(`{"status": "ok"}`), nil
}

func (s *stubMetadataService) Invalidate(connectionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, connectionID)
}

func osduConfig() model.ConnectionConfig {
	return model.ConnectionConfig{DataPartitionID: "opendes"}
}

func TestConnectionCreate(t *testing.T) {
	svc := NewConnectionService(newStubConnectionRepo(), &stubMetadataService{})

	conn, err := svc.Create(context.Background(), "prod-osdu", model.ConnectionKindOSDU, osduConfig())
	require.NoError(t, err)
	require.NotZero(t, conn.ID)
	require.Equal(t, model.HealthUnknown, conn.LastHealth)
}

func TestConnectionCreate_Validation(t *testing.T) {
	svc := NewConnectionService(newStubConnectionRepo(), &stubMetadataService{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "", model.ConnectionKindOSDU, osduConfig())
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(ctx, "x", "oracle", model.ConnectionConfig{})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(ctx, "x", model.ConnectionKindOSDU, model.ConnectionConfig{})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(ctx, "x", model.ConnectionKindProSource, model.ConnectionConfig{})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(ctx, "x", model.ConnectionKindProSource, model.ConnectionConfig{ProjectName: "NorthSea", DBSchema: "PS"})
	require.NoError(t, err)
}

func TestConnectionCreate_DuplicateName(t *testing.T) {
	svc := NewConnectionService(newStubConnectionRepo(), &stubMetadataService{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "prod", model.ConnectionKindOSDU, osduConfig())
	require.NoError(t, err)

	_, err = svc.Create(ctx, "prod", model.ConnectionKindOSDU, osduConfig())
	require.ErrorIs(t, err, ErrConflict)
}

func TestConnectionUpdate(t *testing.T) {
	metadata := &stubMetadataService{}
	svc := NewConnectionService(newStubConnectionRepo(), metadata)
	ctx := context.Background()

	conn, err := svc.Create(ctx, "prod", model.ConnectionKindOSDU, osduConfig())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, conn.ID, "prod-eu", model.ConnectionKindOSDU, model.ConnectionConfig{DataPartitionID: "eu-des"})
	require.NoError(t, err)
	require.Equal(t, "prod-eu", updated.Name)
	require.Equal(t, "eu-des", updated.Config.DataPartitionID)

	// Update flushes the connection's cache.
	require.Contains(t, metadata.invalidated, conn.ID)

	// Keeping its own name is not a conflict.
	_, err = svc.Update(ctx, conn.ID, "prod-eu", model.ConnectionKindOSDU, osduConfig())
	require.NoError(t, err)

	_, err = svc.Update(ctx, 999, "other", model.ConnectionKindOSDU, osduConfig())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConnectionUpdate_NameConflict(t *testing.T) {
	svc := NewConnectionService(newStubConnectionRepo(), &stubMetadataService{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "a", model.ConnectionKindOSDU, osduConfig())
	require.NoError(t, err)
	connB, err := svc.Create(ctx, "b", model.ConnectionKindOSDU, osduConfig())
	require.NoError(t, err)

	_, err = svc.Update(ctx, connB.ID, "a", model.ConnectionKindOSDU, osduConfig())
	require.ErrorIs(t, err, ErrConflict)
}

func TestConnectionDelete(t *testing.T) {
	metadata := &stubMetadataService{}
	svc := NewConnectionService(newStubConnectionRepo(), metadata)
	ctx := context.Background()

	conn, err := svc.Create(ctx, "prod", model.ConnectionKindOSDU, osduConfig())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, conn.ID))
	require.Contains(t, metadata.invalidated, conn.ID)

	require.ErrorIs(t, svc.Delete(ctx, conn.ID), ErrNotFound)
	_, err = svc.Get(ctx, conn.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConnectionCheck(t *testing.T) {
	metadata := &stubMetadataService{}
	svc := NewConnectionService(newStubConnectionRepo(), metadata)
	ctx := context.Background()

	conn, err := svc.Create(ctx, "prod", model.ConnectionKindOSDU, osduConfig())
	require.NoError(t, err)

	checked, err := svc.Check(ctx, conn.ID)
	require.NoError(t, err)
	require.Equal(t, model.HealthHealthy, checked.LastHealth)
	require.Nil(t, checked.LastError)
	require.NotNil(t, checked.LastCheckedAt)
	require.Equal(t, []string{MethodCheckHealth}, metadata.calls)
}

func TestConnectionCheck_Unhealthy(t *testing.T) {
	metadata := &stubMetadataService{callErr: errors.New("connection refused")}
	svc := NewConnectionService(newStubConnectionRepo(), metadata)
	ctx := context.Background()

	conn, err := svc.Create(ctx, "prod", model.ConnectionKindOSDU, osduConfig())
	require.NoError(t, err)

	checked, err := svc.Check(ctx, conn.ID)
	require.NoError(t, err)
	require.Equal(t, model.HealthUnhealthy, checked.LastHealth)
	require.NotNil(t, checked.LastError)
	require.Contains(t, *checked.LastError, "connection refused")
}

func TestConnectionCheckAll(t *testing.T) {
	metadata := &stubMetadataService{}
	repo := newStubConnectionRepo()
	svc := NewConnectionService(repo, metadata)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, name, model.ConnectionKindOSDU, osduConfig())
		require.NoError(t, err)
	}

	require.NoError(t, svc.CheckAll(ctx))

	conns, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 3)
	for _, conn := range conns {
		require.Equal(t, model.HealthHealthy, conn.LastHealth)
		require.NotNil(t, conn.LastCheckedAt)
	}
}
