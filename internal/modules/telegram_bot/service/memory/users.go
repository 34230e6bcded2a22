package memory

import (
	"alpha_bot/internal/models"
	"context"
	"sync"
)

type User struct {
	mu   sync.RWMutex
	data map[string]models.User
}

func NewUser() *User {
	return &User{data: make(map[string]models.User)}
}

func (u *User) Get(ctx context.Context, userID string) (*models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.data[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &user, nil
}

func (u *User) Create(ctx context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.data[user.UserID]; !ok {
		u.data[user.UserID] = *user
	}
	return nil
}

// Link привязывает аккаунт; в проде это делает внешний сервис.
func (u *User) Link(userID, accountID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user := u.data[userID]
	user.UserID = userID
	user.AccountID = accountID
	u.data[userID] = user
}
