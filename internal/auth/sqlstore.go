package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the record in the session_store table.
// The table is created by the database migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewPostgresStore creates a store for key over pool.
func NewPostgresStore(pool *pgxpool.Pool, key string) *PostgresStore {
	return &PostgresStore{pool: pool, key: key}
}

func (s *PostgresStore) Load(ctx context.Context) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM session_store WHERE key = $1`, s.key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) Save(ctx context.Context, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, s.key, data)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM session_store WHERE key = $1`, s.key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const mssqlSchema = `
IF OBJECT_ID(N'dbo.session_store', N'U') IS NULL
CREATE TABLE dbo.session_store (
	[key]      NVARCHAR(128)  NOT NULL PRIMARY KEY,
	value      VARBINARY(MAX) NOT NULL,
	updated_at DATETIME2      NOT NULL DEFAULT SYSUTCDATETIME()
)`

// MSSQLStore keeps the record in a SQL Server session_store table.
type MSSQLStore struct {
	db  *sql.DB
	key string
}

// NewMSSQLStore creates the session_store table if needed and returns a
// store for key.
func NewMSSQLStore(ctx context.Context, db *sql.DB, key string) (*MSSQLStore, error) {
	if _, err := db.ExecContext(ctx, mssqlSchema); err != nil {
		return nil, fmt.Errorf("failed to create session_store table: %w", err)
	}
	return &MSSQLStore{db: db, key: key}, nil
}

func (s *MSSQLStore) Load(ctx context.Context) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM dbo.session_store WHERE [key] = @p1`, s.key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return value, nil
}

func (s *MSSQLStore) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		MERGE dbo.session_store WITH (HOLDLOCK) AS t
		USING (SELECT @p1 AS [key], @p2 AS value) AS s ON t.[key] = s.[key]
		WHEN MATCHED THEN UPDATE SET value = s.value, updated_at = SYSUTCDATETIME()
		WHEN NOT MATCHED THEN INSERT ([key], value, updated_at) VALUES (s.[key], s.value, SYSUTCDATETIME());
	`, s.key, data)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *MSSQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dbo.session_store WHERE [key] = @p1`, s.key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *MSSQLStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
