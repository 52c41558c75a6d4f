package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Store owns the connection pool. Queries auto-commits each statement;
// RunInTx scopes a group of statements to one transaction.
type Store struct {
	DB      *sql.DB
	Queries *Queries
	Driver  Driver
}

func NewStore(db *sql.DB, driver Driver) *Store {
	return &Store{DB: db, Queries: New(db, driver), Driver: driver}
}

// RunInTx calls fn with Queries bound to a new transaction. The transaction
// commits when fn returns nil and rolls back on error or panic.
func (s *Store) RunInTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rollbackErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
