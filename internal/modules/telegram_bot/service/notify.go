package service

import (
	"alpha_bot/internal/models"
	"alpha_bot/pkg/logger"
	"context"
	"strconv"
)

// OrderFilled implements the paper fill notifier: the chat id is the user id.
func (t *Telegram) OrderFilled(ctx context.Context, order models.PaperOrder) {
	chatID, err := strconv.ParseInt(order.UserID, 10, 64)
	if err != nil {
		logger.Warn("fill for non-telegram user %q, order %s", order.UserID, order.ID)
		return
	}
	if _, err := t.Send(ctx, chatID, formatFill(order)); err != nil {
		logger.Error("notify fill %s: %v", order.ID, err)
	}
}
