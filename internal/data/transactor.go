package data

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/data/pgxutil"
)

// Transactor executes service-level units of work inside one database
// transaction, handing the services a pgx.Tx for the repositories'
// *InTx methods.
type Transactor struct {
	DB *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{DB: db}
}

// InTx runs fn in a transaction, committing on nil and rolling back on
// error.
func (t *Transactor) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgxutil.WithPgxTx(ctx, t.DB, pgxutil.TxConfig{Fn: fn})
}
