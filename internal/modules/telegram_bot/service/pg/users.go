package pg

import (
	"alpha_bot/internal/models"
	"alpha_bot/pkg/db"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	getUserSQL    = `SELECT user_id, COALESCE(account_id, ''), created_at FROM users WHERE user_id = $1`
	createUserSQL = `INSERT INTO users (user_id, account_id, created_at) VALUES ($1, NULLIF($2, ''), $3)
ON CONFLICT (user_id) DO NOTHING`
)

// User: пользователи в Postgres. account_id пишет внешний сервис привязки.
type User struct {
	db db.TxManager
}

// NewUser instance
func NewUser(db db.TxManager) *User {
	return &User{db: db}
}

// Get in db
func (u *User) Get(ctx context.Context, userID string) (user *models.User, err error) {
	defer func() {
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			err = fmt.Errorf("pg.User.Get: %w", err)
		}
	}()

	user = &models.User{}
	err = u.db.Conn().QueryRow(ctx, getUserSQL, userID).Scan(&user.UserID, &user.AccountID, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create in db
func (u *User) Create(ctx context.Context, user *models.User) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.User.Create: %w", err)
		}
	}()

	return u.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, createUserSQL, user.UserID, user.AccountID, user.CreatedAt)
		return err
	})
}
