package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"strata/backend/internal/logger"
	"strata/backend/internal/model"
	"strata/backend/internal/repository"
)

// healthCheckConcurrency bounds parallel upstream probes in CheckAll.
const healthCheckConcurrency = 4

// ConnectionService manages configured upstream platforms.
type ConnectionService interface {
	Create(ctx context.Context, name, kind string, cfg model.ConnectionConfig) (model.Connection, error)
	Get(ctx context.Context, id int64) (model.Connection, error)
	List(ctx context.Context) ([]model.Connection, error)
	Update(ctx context.Context, id int64, name, kind string, cfg model.ConnectionConfig) (model.Connection, error)
	Delete(ctx context.Context, id int64) error
	// Check probes a single connection and persists the outcome.
	Check(ctx context.Context, id int64) (model.Connection, error)
	// CheckAll probes every connection, bounded-parallel.
	CheckAll(ctx context.Context) error
}

type connectionService struct {
	repo     repository.ConnectionRepository
	metadata MetadataService
}

// NewConnectionService creates a new connection service.
func NewConnectionService(repo repository.ConnectionRepository, metadata MetadataService) ConnectionService {
	return &connectionService{repo: repo, metadata: metadata}
}

func (s *connectionService) Create(ctx context.Context, name, kind string, cfg model.ConnectionConfig) (model.Connection, error) {
	if err := validateConnection(name, kind, cfg); err != nil {
		return model.Connection{}, err
	}

	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return model.Connection{}, fmt.Errorf("find connection: %w", err)
	}
	if existing != nil {
		return model.Connection{}, fmt.Errorf("%w: connection %q already exists", ErrConflict, name)
	}

	conn, err := s.repo.Create(ctx, model.Connection{
		Name:       name,
		Kind:       kind,
		Config:     cfg,
		LastHealth: model.HealthUnknown,
	})
	if err != nil {
		return model.Connection{}, fmt.Errorf("create connection: %w", err)
	}

	logger.Info("connection created", "module", "service", "action", "create", "resource", "connection", "result", "ok", "connection_id", conn.ID, "kind", kind)
	return conn, nil
}

func (s *connectionService) Get(ctx context.Context, id int64) (model.Connection, error) {
	conn, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Connection{}, fmt.Errorf("%w: connection %d", ErrNotFound, id)
	}
	if err != nil {
		return model.Connection{}, fmt.Errorf("get connection: %w", err)
	}
	return conn, nil
}

func (s *connectionService) List(ctx context.Context) ([]model.Connection, error) {
	return s.repo.List(ctx)
}

func (s *connectionService) Update(ctx context.Context, id int64, name, kind string, cfg model.ConnectionConfig) (model.Connection, error) {
	if err := validateConnection(name, kind, cfg); err != nil {
		return model.Connection{}, err
	}

	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return model.Connection{}, fmt.Errorf("find connection: %w", err)
	}
	if existing != nil && existing.ID != id {
		return model.Connection{}, fmt.Errorf("%w: connection %q already exists", ErrConflict, name)
	}

	conn, err := s.repo.Update(ctx, model.Connection{ID: id, Name: name, Kind: kind, Config: cfg})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Connection{}, fmt.Errorf("%w: connection %d", ErrNotFound, id)
	}
	if err != nil {
		return model.Connection{}, fmt.Errorf("update connection: %w", err)
	}

	// Credentials or targets may have changed; cached results are stale.
	s.metadata.Invalidate(id)

	logger.Info("connection updated", "module", "service", "action", "update", "resource", "connection", "result", "ok", "connection_id", id)
	return conn, nil
}

func (s *connectionService) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: connection %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}

	s.metadata.Invalidate(id)

	logger.Info("connection deleted", "module", "service", "action", "delete", "resource", "connection", "result", "ok", "connection_id", id)
	return nil
}

func (s *connectionService) Check(ctx context.Context, id int64) (model.Connection, error) {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return model.Connection{}, err
	}

	health, errMessage := s.probe(ctx, conn.ID)
	checkedAt := time.Now().UTC()
	if err := s.repo.UpdateHealth(ctx, conn.ID, health, errMessage, checkedAt); err != nil {
		return model.Connection{}, fmt.Errorf("update health: %w", err)
	}

	conn.LastHealth = health
	conn.LastError = errMessage
	conn.LastCheckedAt = &checkedAt
	return conn, nil
}

func (s *connectionService) CheckAll(ctx context.Context) error {
	conns, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list connections: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(healthCheckConcurrency)
	for _, conn := range conns {
		conn := conn
		g.Go(func() error {
			health, errMessage := s.probe(ctx, conn.ID)
			if err := s.repo.UpdateHealth(ctx, conn.ID, health, errMessage, time.Now().UTC()); err != nil {
				logger.Warn("health update failed", "module", "service", "action", "update", "resource", "connection", "result", "failed", "connection_id", conn.ID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// probe runs check_health against a connection and folds the outcome
// into a health state plus optional error detail.
func (s *connectionService) probe(ctx context.Context, id int64) (string, *string) {
	_, err := s.metadata.Call(ctx, id, MethodCheckHealth, nil)
	if err != nil {
		detail := truncateDetail(err.Error())
		logger.Warn("health check failed", "module", "service", "action", "fetch", "resource", "connection", "result", "failed", "connection_id", id, "error", err)
		return model.HealthUnhealthy, &detail
	}
	return model.HealthHealthy, nil
}

func validateConnection(name, kind string, cfg model.ConnectionConfig) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: connection name is required", ErrInvalid)
	}
	switch kind {
	case model.ConnectionKindOSDU:
		if cfg.DataPartitionID == "" {
			return fmt.Errorf("%w: data partition id is required for osdu connections", ErrInvalid)
		}
	case model.ConnectionKindProSource:
		if cfg.ProjectName == "" {
			return fmt.Errorf("%w: project name is required for prosource connections", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown connection kind %q", ErrInvalid, kind)
	}
	return nil
}
