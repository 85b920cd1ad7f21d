package repository

import (
	"context"
	"database/sql"
	"time"

	"strata/backend/internal/model"
	"strata/backend/internal/snowflake"
)

type ConnectionRepository interface {
	Create(ctx context.Context, conn model.Connection) (model.Connection, error)
	GetByID(ctx context.Context, id int64) (model.Connection, error)
	FindByName(ctx context.Context, name string) (*model.Connection, error)
	List(ctx context.Context) ([]model.Connection, error)
	Update(ctx context.Context, conn model.Connection) (model.Connection, error)
	UpdateHealth(ctx context.Context, id int64, health string, errorMessage *string, checkedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

type connectionRepository struct {
	db dbtx
}

func NewConnectionRepository(db dbtx) ConnectionRepository {
	return &connectionRepository{db: db}
}

const connectionColumns = `id, name, kind, data_partition_id, project_name, db_schema,
	last_health, last_error, last_checked_at, created_at, updated_at`

func (r *connectionRepository) Create(ctx context.Context, conn model.Connection) (model.Connection, error) {
	conn.ID = snowflake.NextID()
	now := time.Now().UTC()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO connections (id, name, kind, data_partition_id, project_name, db_schema, last_health, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, conn.ID, conn.Name, conn.Kind,
		conn.Config.DataPartitionID, conn.Config.ProjectName, conn.Config.DBSchema,
		conn.LastHealth, formatTime(now), formatTime(now))
	if err != nil {
		return model.Connection{}, err
	}
	return conn, nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id int64) (model.Connection, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id)
	return scanConnection(row)
}

func (r *connectionRepository) FindByName(ctx context.Context, name string) (*model.Connection, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connections WHERE name = ?`, name)
	conn, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) List(ctx context.Context) ([]model.Connection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM connections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []model.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func (r *connectionRepository) Update(ctx context.Context, conn model.Connection) (model.Connection, error) {
	now := time.Now().UTC()
	conn.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		UPDATE connections
		SET name = ?, kind = ?, data_partition_id = ?, project_name = ?, db_schema = ?, updated_at = ?
		WHERE id = ?
	`, conn.Name, conn.Kind,
		conn.Config.DataPartitionID, conn.Config.ProjectName, conn.Config.DBSchema,
		formatTime(now), conn.ID)
	if err != nil {
		return model.Connection{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return model.Connection{}, err
	}
	if affected == 0 {
		return model.Connection{}, sql.ErrNoRows
	}
	return conn, nil
}

func (r *connectionRepository) UpdateHealth(ctx context.Context, id int64, health string, errorMessage *string, checkedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE connections SET last_health = ?, last_error = ?, last_checked_at = ? WHERE id = ?
	`, health, errorMessage, formatTime(checkedAt), id)
	return err
}

func (r *connectionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (model.Connection, error) {
	var conn model.Connection
	var dataPartitionID, projectName, dbSchema, lastHealth sql.NullString
	var lastError sql.NullString
	var lastCheckedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&conn.ID, &conn.Name, &conn.Kind,
		&dataPartitionID, &projectName, &dbSchema,
		&lastHealth, &lastError, &lastCheckedAt, &createdAt, &updatedAt)
	if err != nil {
		return model.Connection{}, err
	}

	conn.Config = model.ConnectionConfig{
		DataPartitionID: dataPartitionID.String,
		ProjectName:     projectName.String,
		DBSchema:        dbSchema.String,
	}
	conn.LastHealth = lastHealth.String
	if lastError.Valid {
		conn.LastError = &lastError.String
	}
	if lastCheckedAt.Valid {
		conn.LastCheckedAt = parseTimePtr(lastCheckedAt.String)
	}
	conn.CreatedAt, _ = parseTime(createdAt)
	conn.UpdatedAt, _ = parseTime(updatedAt)

	return conn, nil
}
