package service

import (
	"alpha_bot/internal/models"
	"alpha_bot/internal/modules/config"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// buyEpsilon гасит ошибку округления при покупке "на всё".
const buyEpsilon = 0.9999999999

// Formatter округляет цену и количество по правилам площадки.
// Возвращённые числа дальше считаются точными.
type Formatter interface {
	FormatPrice(ticker models.Ticker, price float64) (string, float64, error)
	FormatAmount(ticker models.Ticker, amount float64) (string, float64, error)
}

type Limits struct {
	StartingBalance float64
	MaxOpenOrders   int
	ResetCooldown   time.Duration
	ConfirmTimeout  time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		StartingBalance: 10000,
		MaxOpenOrders:   50,
		ResetCooldown:   7 * 24 * time.Hour,
		ConfirmTimeout:  time.Minute,
	}
}

func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		StartingBalance: cfg.Paper.StartingBalance,
		MaxOpenOrders:   cfg.Paper.MaxOpenOrders,
		ResetCooldown:   cfg.Paper.ResetCooldown,
		ConfirmTimeout:  cfg.Telegram.ConfirmTimeout,
	}
}

// TradeRequest: разобранная команда пользователя.
type TradeRequest struct {
	User      models.User
	Ticker    models.Ticker
	OrderType models.OrderType
	Platform  string

	Amount          float64
	AmountIsPercent bool

	// Price == 0 и !HasPrice: рыночная заявка
	HasPrice       bool
	Price          float64
	PriceIsPercent bool
}

// Preview: итог первой фазы: замороженная заявка или отказ.
type Preview struct {
	Order     *models.PendingOrder
	Rejection *models.Rejection
}

// Engine holds the ledger arithmetic. It never touches storage.
type Engine struct {
	limits Limits
	format Formatter
	now    func() time.Time
	newID  func() string
}

func NewEngine(limits Limits, format Formatter) *Engine {
	return &Engine{
		limits: limits,
		format: format,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

func (e *Engine) Limits() Limits { return e.limits }

// Process sizes the order against the current balance and freezes it.
// ledger may be nil: a user who never traded is checked against the starting sheet.
func (e *Engine) Process(req TradeRequest, quote models.Quote, ledger *models.Ledger, openOrders int) (Preview, error) {
	if !req.OrderType.Valid() {
		return Preview{Rejection: models.Reject(models.RejectUnsupported, "Unsupported order type",
			"Order type %q is not supported.", req.OrderType)}, nil
	}
	venue := req.Ticker.Venue()
	if venue == "" || req.Ticker.Base == "" || req.Ticker.Quote == "" {
		return Preview{Rejection: models.Reject(models.RejectUnsupported, "Paper trading not available",
			"Paper trading is not supported for %s.", req.Ticker.ID)}, nil
	}

	balance := e.startingSheet(venue)
	if ledger.Active() {
		balance = ledger.Balance
	}

	baseAsset := models.NormalizeAsset(req.Ticker.Base)
	quoteAsset := models.NormalizeAsset(req.Ticker.Quote)

	// close округляем тем же правилом, иначе рыночная заявка станет лимитной
	_, lastClose, err := e.format.FormatPrice(req.Ticker, quote.Close)
	if err != nil {
		return Preview{}, err
	}
	priceText, price, err := e.format.FormatPrice(req.Ticker, execPrice(req, quote.Close))
	if err != nil {
		return Preview{}, err
	}

	amount := req.Amount
	if req.AmountIsPercent {
		pct := math.Min(math.Abs(req.Amount), 100)
		if req.OrderType.IsSell() {
			amount = math.Abs(balance.Get(venue, baseAsset)) * pct / 100
		} else if price > 0 {
			amount = math.Abs(balance.Get(venue, quoteAsset)) / price * pct / 100
		} else {
			amount = 0
		}
	}
	amountText, amount, err := e.format.FormatAmount(req.Ticker, amount)
	if err != nil {
		return Preview{}, err
	}

	// точное сравнение: любое отличие от close делает заявку лимитной
	isLimit := price != lastClose
	placement := models.PlacementNone
	if isLimit {
		placement = models.PlacementBelow
		if price > lastClose {
			placement = models.PlacementAbove
		}
	}

	order := &models.PendingOrder{
		ID:         e.newID(),
		OwnerID:    req.User.OwnerID(),
		UserID:     req.User.UserID,
		Ticker:     req.Ticker,
		Venue:      venue,
		OrderType:  req.OrderType,
		Amount:     amount,
		AmountText: amountText,
		Price:      price,
		PriceText:  priceText,
		LastClose:  lastClose,
		IsLimit:    isLimit,
		Placement:  placement,
		BaseAsset:  baseAsset,
		QuoteAsset: quoteAsset,
		CreatedAt:  e.now(),
	}

	if rej := e.Validate(*order, balance); rej != nil {
		return Preview{Rejection: rej}, nil
	}
	if rej := e.checkOpenOrders(*order, openOrders); rej != nil {
		return Preview{Rejection: rej}, nil
	}
	return Preview{Order: order}, nil
}

func execPrice(req TradeRequest, close float64) float64 {
	if !req.HasPrice {
		return close
	}
	if !req.PriceIsPercent {
		return req.Price
	}
	if req.OrderType == models.OrderSell {
		return close * (1 + req.Price/100)
	}
	return close * (1 - req.Price/100)
}

// Validate checks a frozen order against balance. The first failure wins.
func (e *Engine) Validate(o models.PendingOrder, balance *models.Balance) *models.Rejection {
	if o.Amount <= 0 {
		return models.Reject(models.RejectZeroSize, "Insufficient order size",
			"Order size for %s rounds down to zero.", o.Ticker.ID)
	}

	base := balance.Get(o.Venue, o.BaseAsset)
	quote := balance.Get(o.Venue, o.QuoteAsset)

	if o.OrderType.IsSell() {
		if o.Amount > base {
			return models.Reject(models.RejectInsufficientBalance, "Insufficient paper balance",
				"Order size of %s %s exceeds your balance of %s %s.",
				o.AmountText, o.BaseAsset, Quantity(base), o.BaseAsset)
		}
	} else if o.Amount*o.Price*buyEpsilon > quote {
		return models.Reject(models.RejectInsufficientBalance, "Insufficient paper balance",
			"Order value of %s %s exceeds your balance of %s %s.",
			Quantity(o.Amount*o.Price), o.QuoteAsset, Quantity(quote), o.QuoteAsset)
	}

	if o.OrderType.IsSell() && base == 0 {
		return models.Reject(models.RejectEmptyBalance, "Empty paper balance",
			"You have no %s on %s.", o.BaseAsset, o.Venue)
	}
	if !o.OrderType.IsSell() && quote == 0 {
		return models.Reject(models.RejectEmptyBalance, "Empty paper balance",
			"You have no %s to buy with.", o.QuoteAsset)
	}

	if o.Price <= 0 {
		return models.Reject(models.RejectInvalidPrice, "Invalid order price",
			"Execution price %s is not positive.", o.PriceText)
	}
	return nil
}

func (e *Engine) checkOpenOrders(o models.PendingOrder, open int) *models.Rejection {
	if o.IsLimit && e.limits.MaxOpenOrders > 0 && open >= e.limits.MaxOpenOrders {
		return models.Reject(models.RejectCapacity, "Too many open orders",
			"You can only have up to %d open paper orders.", e.limits.MaxOpenOrders)
	}
	return nil
}

// Expired: заявка ждала подтверждения дольше окна.
func (e *Engine) Expired(o models.PendingOrder) *models.Rejection {
	if e.limits.ConfirmTimeout > 0 && e.now().Sub(o.CreatedAt) > e.limits.ConfirmTimeout {
		return models.Reject(models.RejectExpired, "Order expired",
			"The order was not confirmed in time.")
	}
	return nil
}

func (e *Engine) startingSheet(venue string) *models.Balance {
	return models.NewBalance(e.limits.StartingBalance, venue)
}

// Open returns the ledger ready for a trade on venue, creating the
// starting sheet on first use.
func (e *Engine) Open(ledger *models.Ledger, owner, venue string) *models.Ledger {
	if ledger == nil {
		ledger = &models.Ledger{OwnerID: owner}
	} else {
		ledger = ledger.Clone()
	}
	if ledger.Balance == nil {
		ledger.Balance = e.startingSheet(venue)
	}
	if ledger.GlobalLastReset == 0 {
		ledger.GlobalLastReset = e.now().Unix()
	}
	ledger.Balance.EnsureVenue(venue)
	return ledger
}

// Apply commits a validated order. Limit orders only debit the paying side.
func (e *Engine) Apply(b *models.Balance, o models.PendingOrder) {
	if o.OrderType.IsSell() {
		b.Add(o.Venue, o.BaseAsset, -o.Amount)
		if !o.IsLimit {
			b.Add(o.Venue, o.QuoteAsset, o.Amount*o.Price)
		}
		return
	}
	b.Add(o.Venue, o.QuoteAsset, -o.Amount*o.Price)
	if !o.IsLimit {
		b.Add(o.Venue, o.BaseAsset, o.Amount)
	}
}

// Cancel returns what Apply debited for an open limit order.
func (e *Engine) Cancel(b *models.Balance, o models.PendingOrder) {
	if o.OrderType.IsSell() {
		b.Add(o.Venue, o.BaseAsset, o.Amount)
		return
	}
	b.Add(o.Venue, o.QuoteAsset, o.Amount*o.Price)
}

// Fill credits the receiving side of an open limit order.
func (e *Engine) Fill(b *models.Balance, o models.PendingOrder) {
	if o.OrderType.IsSell() {
		b.Add(o.Venue, o.QuoteAsset, o.Amount*o.Price)
		return
	}
	b.Add(o.Venue, o.BaseAsset, o.Amount)
}

// CheckReset: сброс раз в ResetCooldown и только после первой сделки.
func (e *Engine) CheckReset(ledger *models.Ledger) *models.Rejection {
	if ledger == nil || ledger.GlobalLastReset == 0 {
		return models.Reject(models.RejectNoActivity, "Nothing to reset",
			"You have not traded on your paper account yet.")
	}
	next := time.Unix(ledger.GlobalLastReset, 0).Add(e.limits.ResetCooldown)
	if now := e.now(); now.Before(next) {
		return models.Reject(models.RejectResetCooldown, "Paper balance reset unavailable",
			"You can reset your paper balance once every %s. Next reset is available in %s.",
			humanDuration(e.limits.ResetCooldown), humanDuration(next.Sub(now)))
	}
	return nil
}

// Reset wipes the balance and stamps the reset time.
func (e *Engine) Reset(ledger *models.Ledger) *models.Ledger {
	out := ledger.Clone()
	out.Balance = nil
	out.GlobalResetCount++
	out.GlobalLastReset = e.now().Unix()
	return out
}

// Quantity renders a balance amount without trailing zeros.
func Quantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	minutes := int((d - time.Duration(hours)*time.Hour) / time.Minute)
	switch {
	case days > 0 && hours > 0:
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h"
	case days > 0:
		return strconv.Itoa(days) + "d"
	case hours > 0:
		return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
	}
	return strconv.Itoa(minutes) + "m"
}
