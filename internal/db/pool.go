// Package db holds the Postgres repository layer: tenant-scoped CRUD
// over every entity plus the row-locked claim queries the task queue and
// webhook retry driver depend on.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeremybastin1207/mindia-go/internal/vector"
)

type Store struct {
	pool *pgxpool.Pool
}

// discoverVectorOID ensures the pgvector extension exists and reads the
// OID Postgres assigned its "vector" type. Extension OIDs are not fixed
// across clusters, so this runs once per process on a scratch connection
// before the pool is built.
func discoverVectorOID(ctx context.Context, connString string) (uint32, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return 0, err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return 0, err
	}
	var oid uint32
	if err := conn.QueryRow(ctx, `SELECT oid FROM pg_type WHERE typname = 'vector'`).Scan(&oid); err != nil {
		return 0, err
	}
	return oid, nil
}

func NewStore(ctx context.Context, connString string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	vectorOID, err := discoverVectorOID(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("discover vector type: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		vector.RegisterType(conn.TypeMap(), vectorOID)
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
