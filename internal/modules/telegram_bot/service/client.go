package service

import (
	"alpha_bot/internal/models"
	alertsService "alpha_bot/internal/modules/alerts/service"
	"alpha_bot/internal/modules/config"
	healthService "alpha_bot/internal/modules/health/service"
	paperService "alpha_bot/internal/modules/paper/service"
	"alpha_bot/pkg/logger"
	"context"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// platform: имя фронтенда для Processor.
const platform = "telegram"

// Bot: то, что нужно от tgbot.BotAPI.
type Bot interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
	Request(c tgbot.Chattable) (*tgbot.APIResponse, error)
	GetUpdatesChan(config tgbot.UpdateConfig) tgbot.UpdatesChannel
	StopReceivingUpdates()
}

type UserRepository interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type Alerts interface {
	Create(ctx context.Context, req alertsService.Request) (alertsService.Decision, error)
	List(ctx context.Context, user models.User) ([]models.PriceAlert, error)
	Delete(ctx context.Context, user models.User, id string) (*models.Rejection, error)
}

type Paper interface {
	Preview(ctx context.Context, req paperService.TradeRequest) (paperService.Preview, error)
	Commit(ctx context.Context, order models.PendingOrder) (*models.Rejection, error)
	CancelOrder(ctx context.Context, user models.User, orderID string) (*models.Rejection, error)
	CheckReset(ctx context.Context, user models.User) (*models.Rejection, error)
	Reset(ctx context.Context, user models.User) (*models.Rejection, error)
	Balance(ctx context.Context, user models.User) (*models.Ledger, error)
	OpenOrders(ctx context.Context, user models.User) ([]models.PaperOrder, error)
}

type Tickers interface {
	MatchTicker(ctx context.Context, query, exchange, platform string) (models.Ticker, error)
}

type pending struct {
	ch     chan bool
	msgID  int
	prompt string
}

// Telegram: чат-фронтенд: команды алертов и бумажной торговли.
type Telegram struct {
	bot            Bot
	confirmTimeout time.Duration

	mu       sync.Mutex
	pendings map[string]*pending

	users   UserRepository
	alerts  Alerts
	paper   Paper
	tickers Tickers
	state   *healthService.State

	wg sync.WaitGroup
}

func NewTelegram(
	cfg *config.Config,
	users UserRepository,
	alerts *alertsService.Service,
	paper *paperService.Service,
	tickers Tickers,
	state *healthService.State,
) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	logger.Info("authorized on account %s", b.Self.UserName)

	return New(b, cfg.Telegram.ConfirmTimeout, users, alerts, paper, tickers, state), nil
}

func New(bot Bot, confirmTimeout time.Duration, users UserRepository, alerts Alerts, paper Paper, tickers Tickers, state *healthService.State) *Telegram {
	return &Telegram{
		bot:            bot,
		confirmTimeout: confirmTimeout,
		pendings:       make(map[string]*pending),
		users:          users,
		alerts:         alerts,
		paper:          paper,
		tickers:        tickers,
		state:          state,
	}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

func (t *Telegram) SendMessage(_ context.Context, message tgbot.MessageConfig) (tgbot.Message, error) {
	return t.bot.Send(message)
}

// Start читает апдейты в фоне, пока ctx жив или не вызван Stop.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	if t.state != nil {
		t.state.SetBotConnected(true)
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, update)
			}
		}
	}()
}

func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
	if t.state != nil {
		t.state.SetBotConnected(false)
	}
	t.wg.Wait()
}
