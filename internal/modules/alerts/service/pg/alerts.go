package pg

import (
	"alpha_bot/internal/models"
	"alpha_bot/pkg/db"
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

const (
	listAlertsSQL = `
SELECT id, owner_id, ticker, level, level_text, placement, platform,
       trigger_message, channel, trigger_tag, created_at
FROM price_alerts
WHERE owner_id = ANY($1)
ORDER BY created_at, level`

	insertAlertSQL = `
INSERT INTO price_alerts (id, owner_id, ticker, fingerprint, level, level_text, placement,
                          platform, trigger_message, channel, trigger_tag, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	deleteAlertSQL = `DELETE FROM price_alerts WHERE id = $1 AND owner_id = ANY($2)`
)

// Alerts: хранилище алертов в Postgres.
type Alerts struct {
	db db.TxManager
}

func NewAlerts(db db.TxManager) *Alerts {
	return &Alerts{db: db}
}

func (a *Alerts) ListByOwners(ctx context.Context, ownerIDs []string) (out []models.PriceAlert, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Alerts.ListByOwners: %w", err)
		}
	}()

	rows, err := a.db.Conn().Query(ctx, listAlertsSQL, ownerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			al        models.PriceAlert
			tickerRaw []byte
			placement string
		)
		if err = rows.Scan(&al.ID, &al.OwnerID, &tickerRaw, &al.Level, &al.LevelText, &placement,
			&al.CurrentPlatform, &al.TriggerMessage, &al.Channel, &al.TriggerTag, &al.Timestamp); err != nil {
			return nil, err
		}
		if err = sonic.Unmarshal(tickerRaw, &al.Ticker); err != nil {
			return nil, fmt.Errorf("alert %s ticker: %w", al.ID, err)
		}
		al.Placement = models.Placement(placement)
		out = append(out, al)
	}
	return out, rows.Err()
}

// Insert пишет все алерты одной транзакцией.
func (a *Alerts) Insert(ctx context.Context, alerts []models.PriceAlert) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Alerts.Insert: %w", err)
		}
	}()

	return a.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, al := range alerts {
			tickerRaw, err := sonic.Marshal(al.Ticker)
			if err != nil {
				return err
			}
			batch.Queue(insertAlertSQL, al.ID, al.OwnerID, tickerRaw, al.Ticker.Fingerprint(),
				al.Level, al.LevelText, string(al.Placement), al.CurrentPlatform,
				al.TriggerMessage, al.Channel, al.TriggerTag, al.Timestamp)
		}
		return tx.SendBatch(ctxTx, batch).Close()
	})
}

func (a *Alerts) Delete(ctx context.Context, ownerIDs []string, id string) (ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Alerts.Delete: %w", err)
		}
	}()

	tag, err := a.db.Conn().Exec(ctx, deleteAlertSQL, id, ownerIDs)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
