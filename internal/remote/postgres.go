package remote

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/hyperengineering/regs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PostgresBackend stores records as JSONB rows keyed by (collection, id).
type PostgresBackend struct {
	pool *pgxpool.Pool
}

var _ Backend = (*PostgresBackend)(nil)

// OpenPostgres connects to dsn, verifies the connection, and applies
// pending schema migrations.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*PostgresBackend, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse connection string: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	b := &PostgresBackend{pool: pool}
	if err := b.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

func (b *PostgresBackend) migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: migrations: %w", err)
	}

	db := stdlib.OpenDBFromPool(b.pool)
	defer func() { _ = db.Close() }()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
	if err != nil {
		return fmt.Errorf("postgres: migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("postgres: run migrations: %w", err)
	}
	return nil
}

// Upsert creates or replaces the record stored under id.
func (b *PostgresBackend) Upsert(ctx context.Context, collection, id string, rec regs.Record) error {
	rec.ID = id
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("postgres: encode %s: %w", id, err)
	}

	_, err = b.pool.Exec(ctx, `
		INSERT INTO records (collection, id, owner_id, payload, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (collection, id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id, payload = EXCLUDED.payload, updated_at = now()
	`, collection, id, rec.OwnerID, payload)
	if err != nil {
		return fmt.Errorf("postgres: upsert %s: %w", id, err)
	}
	return nil
}

// QueryByOwner returns the owner's records ordered by id.
func (b *PostgresBackend) QueryByOwner(ctx context.Context, collection, owner string) ([]regs.Record, error) {
	out := []regs.Record{}
	if owner == "" {
		return out, nil
	}

	rows, err := b.pool.Query(ctx, `
		SELECT payload FROM records
		WHERE collection = $1 AND owner_id = $2
		ORDER BY id
	`, collection, owner)
	if err != nil {
		return nil, fmt.Errorf("postgres: query owner %s: %w", owner, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		var rec regs.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("postgres: decode: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query owner %s: %w", owner, err)
	}
	return out, nil
}

// Delete removes id. Deleting an absent id is not an error.
func (b *PostgresBackend) Delete(ctx context.Context, collection, id string) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM records WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		return fmt.Errorf("postgres: delete %s: %w", id, err)
	}
	return nil
}

// Ping checks the database connection.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

// Close releases the connection pool.
func (b *PostgresBackend) Close() {
	b.pool.Close()
}
