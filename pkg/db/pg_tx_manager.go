package db

import (
	"alpha_bot/pkg/logger"
	"alpha_bot/pkg/tracing"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PoolConfig struct {
	DSN      string
	MaxConns int32
}

// PgTxManager: единственный пул на primary; реплик у бота нет.
type PgTxManager struct {
	pool *pgxpool.Pool
}

func NewPgTxManager(pool *pgxpool.Pool) *PgTxManager {
	return &PgTxManager{pool: pool}
}

func NewPool(ctx context.Context, conf PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(conf.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if conf.MaxConns > 0 {
		cfg.MaxConns = conf.MaxConns
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

func (m *PgTxManager) Close() { m.pool.Close() }

func (m *PgTxManager) Ping(ctx context.Context) error { return m.pool.Ping(ctx) }

// Conn: запросы вне транзакции (чтение для показа пользователю).
func (m *PgTxManager) Conn() Transaction { return m.pool }

// RunMaster runs fn in a read-committed transaction. Rows that take part in
// read-validate-write must be selected FOR UPDATE by fn itself.
func (m *PgTxManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) (err error) {
	span, ctx := tracing.StartSpan(ctx, "db.tx")
	defer func() {
		tracing.Fail(span, err)
		span.Finish()
	}()

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("tx panic: %v", p)
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if err = tx.Commit(ctx); err != nil {
			err = fmt.Errorf("commit tx: %w", err)
		}
	}()

	return fn(ctx, tx)
}
