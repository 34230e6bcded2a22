package service

import (
	"alpha_bot/internal/models"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

func chatUserID(chatID int64) string { return strconv.FormatInt(chatID, 10) }

// getUser возвращает пользователя, создавая гостевую запись при первом обращении.
func (t *Telegram) getUser(ctx context.Context, chatID int64) (models.User, error) {
	userID := chatUserID(chatID)
	user, err := t.users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return models.User{}, fmt.Errorf("get user: %w", err)
		}
		user = &models.User{UserID: userID, CreatedAt: time.Now().UTC()}
		if err := t.users.Create(ctx, user); err != nil {
			return models.User{}, fmt.Errorf("create user: %w", err)
		}
	}
	return *user, nil
}
