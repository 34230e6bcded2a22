package pg

import (
	"alpha_bot/internal/models"
	"alpha_bot/internal/modules/paper/service"
	"alpha_bot/pkg/db"
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

const (
	selectLedgerSQL = `
SELECT balance, global_last_reset, global_reset_count
FROM paper_ledgers WHERE owner_id = $1`

	upsertLedgerSQL = `
INSERT INTO paper_ledgers (owner_id, balance, global_last_reset, global_reset_count, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (owner_id) DO UPDATE
SET balance = EXCLUDED.balance,
    global_last_reset = EXCLUDED.global_last_reset,
    global_reset_count = EXCLUDED.global_reset_count,
    updated_at = now()`

	selectOpenSQL = `
SELECT payload, status, closed_at
FROM paper_orders
WHERE owner_id = $1 AND status = 'open'
ORDER BY created_at, id`

	selectAllOpenSQL = `
SELECT payload, status, closed_at
FROM paper_orders
WHERE status = 'open'
ORDER BY created_at, id`

	upsertOrderSQL = `
INSERT INTO paper_orders (id, owner_id, payload, status, created_at, closed_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET payload = EXCLUDED.payload,
    status = EXCLUDED.status,
    closed_at = EXCLUDED.closed_at`

	clearOrdersSQL = `DELETE FROM paper_orders WHERE owner_id = $1`
)

// Store: счета и заявки в Postgres. Строка счёта блокируется FOR UPDATE
// на время Update.
type Store struct {
	db db.TxManager
}

func NewStore(db db.TxManager) *Store {
	return &Store{db: db}
}

func (s *Store) Ledger(ctx context.Context, ownerID string) (l *models.Ledger, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Store.Ledger: %w", err)
		}
	}()
	return scanLedger(s.db.Conn().QueryRow(ctx, selectLedgerSQL, ownerID), ownerID)
}

func (s *Store) OpenOrders(ctx context.Context, ownerID string) (out []models.PaperOrder, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Store.OpenOrders: %w", err)
		}
	}()
	return queryOrders(ctx, s.db.Conn(), selectOpenSQL, ownerID)
}

func (s *Store) AllOpenOrders(ctx context.Context) (out []models.PaperOrder, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Store.AllOpenOrders: %w", err)
		}
	}()
	return queryOrders(ctx, s.db.Conn(), selectAllOpenSQL)
}

func (s *Store) Update(ctx context.Context, ownerID string, fn service.UpdateFunc) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Store.Update: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		ledger, err := scanLedger(tx.QueryRow(ctxTx, selectLedgerSQL+" FOR UPDATE", ownerID), ownerID)
		if err != nil {
			return err
		}
		open, err := queryOrders(ctxTx, tx, selectOpenSQL, ownerID)
		if err != nil {
			return err
		}

		mut, err := fn(ledger, open)
		if err != nil || mut == nil {
			return err
		}

		if mut.Ledger != nil {
			if err := writeLedger(ctxTx, tx, ownerID, mut.Ledger); err != nil {
				return err
			}
		}
		if mut.ClearOrders {
			if _, err := tx.Exec(ctxTx, clearOrdersSQL, ownerID); err != nil {
				return err
			}
		}
		for _, o := range mut.Orders {
			if err := writeOrder(ctxTx, tx, o); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanLedger(row pgx.Row, ownerID string) (*models.Ledger, error) {
	var (
		raw []byte
		l   = &models.Ledger{OwnerID: ownerID}
	)
	if err := row.Scan(&raw, &l.GlobalLastReset, &l.GlobalResetCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if raw != nil {
		var b models.Balance
		if err := sonic.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("ledger %s: %w", ownerID, err)
		}
		l.Balance = &b
	}
	return l, nil
}

func writeLedger(ctx context.Context, tx db.Transaction, ownerID string, l *models.Ledger) error {
	var balance any
	if l.Balance != nil {
		if err := l.Balance.Validate(); err != nil {
			return err
		}
		raw, err := sonic.Marshal(l.Balance)
		if err != nil {
			return err
		}
		balance = raw
	}
	_, err := tx.Exec(ctx, upsertLedgerSQL, ownerID, balance, l.GlobalLastReset, l.GlobalResetCount)
	return err
}

func writeOrder(ctx context.Context, tx db.Transaction, o models.PaperOrder) error {
	raw, err := sonic.Marshal(o)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, upsertOrderSQL, o.ID, o.OwnerID, raw, string(o.Status), o.CreatedAt, o.ClosedAt)
	return err
}

func queryOrders(ctx context.Context, q db.Transaction, sql string, args ...any) ([]models.PaperOrder, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PaperOrder
	for rows.Next() {
		var (
			raw      []byte
			status   string
			closedAt int64
			o        models.PaperOrder
		)
		if err := rows.Scan(&raw, &status, &closedAt); err != nil {
			return nil, err
		}
		if err := sonic.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		o.Status = models.OrderStatus(status)
		o.ClosedAt = closedAt
		out = append(out, o)
	}
	return out, rows.Err()
}
