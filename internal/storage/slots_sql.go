package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"chalkboard/internal/domain"
)

type dialect string

const (
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
	dialectMySQL    dialect = "mysql"
)

var createSlotsTable = map[dialect]string{
	dialectSQLite: `CREATE TABLE IF NOT EXISTS slots (
			name TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	dialectPostgres: `CREATE TABLE IF NOT EXISTS slots (
			name TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	dialectMySQL: `CREATE TABLE IF NOT EXISTS slots (
			name VARCHAR(191) PRIMARY KEY,
			value LONGBLOB NOT NULL,
			updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
		)`,
}

var selectSlot = map[dialect]string{
	dialectSQLite:   `SELECT value FROM slots WHERE name = ?`,
	dialectPostgres: `SELECT value FROM slots WHERE name = $1`,
	dialectMySQL:    `SELECT value FROM slots WHERE name = ?`,
}

var upsertSlot = map[dialect]string{
	dialectSQLite: `INSERT INTO slots (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	dialectPostgres: `INSERT INTO slots (name, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	dialectMySQL: `INSERT INTO slots (name, value, updated_at) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`,
}

// SQLSlotStore keeps each slot as one row of the slots table.
type SQLSlotStore struct {
	db      *sql.DB
	dialect dialect
	owned   bool // close db on Close
}

// openSQLSlotStore connects to a server database and makes sure the slots table exists.
func openSQLSlotStore(ctx context.Context, d dialect, dsn string) (*SQLSlotStore, error) {
	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}
	if _, err := db.ExecContext(ctx, createSlotsTable[d]); err != nil {
		db.Close()
		return nil, fmt.Errorf("create slots table: %w", err)
	}
	return &SQLSlotStore{db: db, dialect: d, owned: true}, nil
}

func (s *SQLSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, selectSlot[s.dialect], key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLSlotStore) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, upsertSlot[s.dialect], key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("put slot %s: %w", key, err)
	}
	return nil
}

func (s *SQLSlotStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
