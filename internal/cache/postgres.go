package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore keeps cache records in a single table, one row per key.
// Useful when several pipeline instances share one durable cache.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects, pings and creates the schema if missing.
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trend_cache (
		key TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		value JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trend_cache_created_at ON trend_cache(created_at);
	`
	_, err := ps.db.Exec(schema)
	return err
}

func (ps *PostgresStore) Read(key string) (Record, error) {
	rec := Record{Key: key}
	var raw []byte

	query := `SELECT created_at, value FROM trend_cache WHERE key = $1`
	err := ps.db.QueryRow(query, key).Scan(&rec.CreatedAt, &raw)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	if !json.Valid(raw) {
		return Record{}, ErrCorrupt
	}
	rec.Value = raw
	return rec, nil
}

func (ps *PostgresStore) Write(rec Record) error {
	query := `
		INSERT INTO trend_cache (key, created_at, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET created_at = $2, value = $3`
	_, err := ps.db.Exec(query, rec.Key, rec.CreatedAt, []byte(rec.Value))
	return err
}

func (ps *PostgresStore) Delete(key string) error {
	_, err := ps.db.Exec(`DELETE FROM trend_cache WHERE key = $1`, key)
	return err
}

func (ps *PostgresStore) Keys() ([]string, error) {
	rows, err := ps.db.Query(`SELECT key FROM trend_cache ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close releases the underlying connection pool.
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
