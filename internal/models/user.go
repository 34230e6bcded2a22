package models

import "time"

// User: пользователь чата и (опционально) привязанный аккаунт.
type User struct {
	UserID    string    `json:"user_id"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Registered reports whether the user linked an account.
func (u User) Registered() bool { return u.AccountID != "" }

// OwnerID: ключ, под которым хранятся алерты и бумажный счёт.
func (u User) OwnerID() string {
	if u.AccountID != "" {
		return u.AccountID
	}
	return u.UserID
}

// OwnerIDs: все владельцы, чьи алерты видит пользователь.
func (u User) OwnerIDs() []string {
	if u.AccountID != "" && u.AccountID != u.UserID {
		return []string{u.UserID, u.AccountID}
	}
	return []string{u.UserID}
}
