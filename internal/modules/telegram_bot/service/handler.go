package service

import (
	"alpha_bot/internal/models"
	alertsService "alpha_bot/internal/modules/alerts/service"
	paperService "alpha_bot/internal/modules/paper/service"
	"alpha_bot/pkg/logger"
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// 1) Команды
	if msg := update.Message; msg != nil {
		if !msg.IsCommand() {
			return
		}
		// команды с сетевыми вызовами и Confirm не должны блокировать цикл апдейтов
		go t.handleCommand(ctx, msg.Chat.ID, msg.Command(), msg.CommandArguments())
		return
	}

	// 2) Inline-кнопки (CallbackQuery)
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil {
			return
		}
		// отвечаем ТГ, чтобы убрать "часики" на кнопке
		_, _ = t.bot.Request(tgbotapi.NewCallback(cb.ID, ""))

		if strings.Contains(cb.Data, "::") {
			t.handleConfirmCallback(cb.Message.Chat.ID, cb.Data)
		}
	}
}

func (t *Telegram) handleCommand(ctx context.Context, chatID int64, command, args string) {
	user, err := t.getUser(ctx, chatID)
	if err != nil {
		logger.Error("getUser %d: %v", chatID, err)
		_, _ = t.Send(ctx, chatID, "Something went wrong, try /start again.")
		return
	}

	switch command {
	case "start", "help":
		_, err = t.Send(ctx, chatID, helpText)
	case "alert":
		err = t.handleAlert(ctx, chatID, user, args)
	case "alerts":
		err = t.handleAlertList(ctx, chatID, user)
	case "delalert":
		err = t.handleAlertDelete(ctx, chatID, user, args)
	case "paper":
		err = t.handlePaper(ctx, chatID, user, args)
	case "balance":
		err = t.handleBalance(ctx, chatID, user)
	case "orders":
		err = t.handleOrders(ctx, chatID, user)
	case "cancel":
		err = t.handleCancel(ctx, chatID, user, args)
	case "reset":
		err = t.handleReset(ctx, chatID, user)
	default:
		_, err = t.Send(ctx, chatID, "Unknown command. "+helpText)
	}
	if err != nil {
		logger.Error("/%s for %s: %v", command, user.UserID, err)
		_, _ = t.Send(ctx, chatID, "❗️ Request failed, please try again later.")
	}
}

// resolve отдаёт тикер или уже отправленное пользователю сообщение.
func (t *Telegram) resolve(ctx context.Context, chatID int64, query, exchange string) (models.Ticker, bool, error) {
	ticker, err := t.tickers.MatchTicker(ctx, query, exchange, platform)
	if errors.Is(err, models.ErrNotFound) {
		_, err = t.SendF(ctx, chatID, "⚠️ Requested ticker %q was not found.", query)
		return models.Ticker{}, false, err
	}
	if err != nil {
		return models.Ticker{}, false, err
	}
	return ticker, true, nil
}

func (t *Telegram) handleAlert(ctx context.Context, chatID int64, user models.User, raw string) error {
	args, err := parseAlertArgs(raw)
	if err != nil {
		_, err = t.Send(ctx, chatID, err.Error())
		return err
	}
	ticker, ok, err := t.resolve(ctx, chatID, args.Query, args.Exchange)
	if !ok {
		return err
	}

	decision, err := t.alerts.Create(ctx, alertsService.Request{
		User:     user,
		Ticker:   ticker,
		Levels:   args.Levels,
		Platform: platform,
		Channel:  chatUserID(chatID),
	})
	if err != nil {
		return err
	}
	if decision.Rejection != nil {
		_, err = t.Send(ctx, chatID, formatRejection(decision.Rejection))
		return err
	}
	_, err = t.Send(ctx, chatID, formatAlertsCreated(decision.Alerts))
	return err
}

func (t *Telegram) handleAlertList(ctx context.Context, chatID int64, user models.User) error {
	alerts, err := t.alerts.List(ctx, user)
	if err != nil {
		return err
	}
	_, err = t.Send(ctx, chatID, formatAlertList(alerts))
	return err
}

func (t *Telegram) handleAlertDelete(ctx context.Context, chatID int64, user models.User, raw string) error {
	id := strings.TrimSpace(raw)
	if id == "" {
		_, err := t.Send(ctx, chatID, "usage: /delalert <id>")
		return err
	}
	rej, err := t.alerts.Delete(ctx, user, id)
	if err != nil {
		return err
	}
	if rej != nil {
		_, err = t.Send(ctx, chatID, formatRejection(rej))
		return err
	}
	_, err = t.Send(ctx, chatID, "🗑 Alert deleted.")
	return err
}

func (t *Telegram) handlePaper(ctx context.Context, chatID int64, user models.User, raw string) error {
	args, err := parsePaperArgs(raw)
	if err != nil {
		_, err = t.Send(ctx, chatID, err.Error())
		return err
	}
	ticker, ok, err := t.resolve(ctx, chatID, args.Query, args.Exchange)
	if !ok {
		return err
	}

	preview, err := t.paper.Preview(ctx, paperService.TradeRequest{
		User:            user,
		Ticker:          ticker,
		OrderType:       args.OrderType,
		Platform:        platform,
		Amount:          args.Amount,
		AmountIsPercent: args.AmountIsPercent,
		HasPrice:        args.HasPrice,
		Price:           args.Price,
		PriceIsPercent:  args.PriceIsPercent,
	})
	if err != nil {
		return err
	}
	if preview.Rejection != nil {
		_, err = t.Send(ctx, chatID, formatRejection(preview.Rejection))
		return err
	}

	// ожидание подтверждения идёт без блокировки счёта; Commit перепроверит баланс
	if !t.Confirm(ctx, chatID, formatPreview(preview.Order), t.confirmTimeout) {
		return nil
	}

	rej, err := t.paper.Commit(ctx, *preview.Order)
	if err != nil {
		return err
	}
	if rej != nil {
		_, err = t.Send(ctx, chatID, formatRejection(rej))
		return err
	}
	if preview.Order.IsLimit {
		_, err = t.SendF(ctx, chatID, "📌 Limit order placed, id: %s", preview.Order.ID)
	} else {
		_, err = t.Send(ctx, chatID, "✅ Paper order executed.")
	}
	return err
}

func (t *Telegram) handleBalance(ctx context.Context, chatID int64, user models.User) error {
	ledger, err := t.paper.Balance(ctx, user)
	if err != nil {
		return err
	}
	_, err = t.Send(ctx, chatID, formatBalance(ledger))
	return err
}

func (t *Telegram) handleOrders(ctx context.Context, chatID int64, user models.User) error {
	orders, err := t.paper.OpenOrders(ctx, user)
	if err != nil {
		return err
	}
	_, err = t.Send(ctx, chatID, formatOrders(orders))
	return err
}

func (t *Telegram) handleCancel(ctx context.Context, chatID int64, user models.User, raw string) error {
	id := strings.TrimSpace(raw)
	if id == "" {
		_, err := t.Send(ctx, chatID, "usage: /cancel <id>")
		return err
	}
	rej, err := t.paper.CancelOrder(ctx, user, id)
	if err != nil {
		return err
	}
	if rej != nil {
		_, err = t.Send(ctx, chatID, formatRejection(rej))
		return err
	}
	_, err = t.Send(ctx, chatID, "🗑 Paper order canceled, funds returned.")
	return err
}

func (t *Telegram) handleReset(ctx context.Context, chatID int64, user models.User) error {
	rej, err := t.paper.CheckReset(ctx, user)
	if err != nil {
		return err
	}
	if rej != nil {
		_, err = t.Send(ctx, chatID, formatRejection(rej))
		return err
	}
	if !t.Confirm(ctx, chatID, "♻️ Reset your paper balance and cancel all orders?", t.confirmTimeout) {
		return nil
	}

	rej, err = t.paper.Reset(ctx, user)
	if err != nil {
		return err
	}
	if rej != nil {
		_, err = t.Send(ctx, chatID, formatRejection(rej))
		return err
	}
	_, err = t.Send(ctx, chatID, "♻️ Paper balance reset.")
	return err
}
