// Package sqlstore is the relational store behind the audit log and the
// notification log: a pure Go SQLite database with embedded migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Sokol111/hrms-commons/pkg/persistence"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Executor is the query surface shared by *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

type Store struct {
	db  *sql.DB
	cfg Config
	log *zap.Logger
}

// Open opens the database described by cfg. It does not touch the schema.
func Open(cfg Config, log *zap.Logger) (*Store, error) {
	ApplyDefaults(&cfg)
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return &Store{db: db, cfg: cfg, log: log}, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Conn returns the transaction bound to ctx by WithTransaction, or the pool.
func (s *Store) Conn(ctx context.Context) Executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// TxManager adapts the store to persistence.TxManager.
func (s *Store) TxManager() persistence.TxManager {
	return txManager{store: s}
}

type txManager struct {
	store *Store
}

// WithTransaction retries fn while SQLite reports the database as busy or
// locked, up to the configured number of attempts. A transaction already in
// ctx is joined instead.
func (t txManager) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= t.store.cfg.TxRetries; attempt++ {
		err = t.run(ctx, fn)
		if err == nil || !isBusy(err) {
			return err
		}
		t.store.log.Warn("database busy, retrying transaction", zap.Int("attempt", attempt), zap.Error(err))
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", t.store.cfg.TxRetries, err)
}

func (t txManager) run(ctx context.Context, fn func(context.Context) error) error {
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			t.store.log.Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isBusy(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
