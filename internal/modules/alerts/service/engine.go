package service

import (
	"alpha_bot/internal/models"
	"alpha_bot/internal/modules/config"
	"time"

	"github.com/google/uuid"
)

// Limits: константы движка алертов.
type Limits struct {
	MaxLevelsPerCall   int
	MaxGuest           int
	MaxRegistered      int
	DuplicateTolerance float64
	LowerBound         float64
	UpperBound         float64
}

// DefaultLimits: ±0.1%, 0.2x..5x, 10 за вызов, 20/200 всего.
func DefaultLimits() Limits {
	return Limits{
		MaxLevelsPerCall:   10,
		MaxGuest:           20,
		MaxRegistered:      200,
		DuplicateTolerance: 0.001,
		LowerBound:         0.2,
		UpperBound:         5,
	}
}

// LegacyLimits: границы старого бота 0.5x..2x.
func LegacyLimits() Limits {
	l := DefaultLimits()
	l.LowerBound = 0.5
	l.UpperBound = 2
	return l
}

func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		MaxLevelsPerCall:   cfg.Alerts.MaxLevelsPerCall,
		MaxGuest:           cfg.Alerts.MaxGuest,
		MaxRegistered:      cfg.Alerts.MaxRegistered,
		DuplicateTolerance: cfg.Alerts.DuplicateTolerance,
		LowerBound:         cfg.Alerts.LowerBound,
		UpperBound:         cfg.Alerts.UpperBound,
	}
}

// Request: запрос на создание одного или нескольких алертов по одному тикеру.
type Request struct {
	User           models.User
	Ticker         models.Ticker
	Levels         []float64
	Platform       string
	TriggerMessage string
	Channel        string
	TriggerTag     string
}

// Decision: либо все алерты приняты, либо Rejection и ничего не создаётся.
type Decision struct {
	Alerts    []models.PriceAlert
	Rejection *models.Rejection
}

// Engine decides whether requested levels can become alerts.
// It keeps no state and is safe for concurrent use.
type Engine struct {
	limits Limits
	now    func() time.Time
	newID  func() string
}

func NewEngine(limits Limits) *Engine {
	return &Engine{
		limits: limits,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Evaluate checks capacity, duplicates and bounds for every level in order.
// The first failing level aborts the whole batch.
func (e *Engine) Evaluate(req Request, quote models.Quote, existing []models.PriceAlert) Decision {
	if rej := e.checkCapacity(req, existing); rej != nil {
		return Decision{Rejection: rej}
	}

	fingerprint := req.Ticker.Fingerprint()
	// уровни, занятые по этому тикеру, включая принятые в этом же вызове
	taken := make([]float64, 0, len(existing)+len(req.Levels))
	for _, a := range existing {
		if a.Ticker.Fingerprint() == fingerprint {
			taken = append(taken, a.Level)
		}
	}

	ts := e.now().Unix()
	accepted := make([]models.PriceAlert, 0, len(req.Levels))
	for _, level := range req.Levels {
		levelText := LevelText(level)

		if rej := e.checkDuplicate(req.Ticker, level, taken); rej != nil {
			return Decision{Rejection: rej}
		}
		if rej := e.checkBounds(req.Ticker, level, levelText, quote); rej != nil {
			return Decision{Rejection: rej}
		}

		placement := models.PlacementBelow
		if level > quote.Close {
			placement = models.PlacementAbove
		}

		accepted = append(accepted, models.PriceAlert{
			ID:              e.newID(),
			OwnerID:         req.User.OwnerID(),
			Ticker:          req.Ticker,
			Level:           level,
			LevelText:       levelText,
			Placement:       placement,
			CurrentPlatform: req.Platform,
			TriggerMessage:  req.TriggerMessage,
			Channel:         req.Channel,
			TriggerTag:      req.TriggerTag,
			Timestamp:       ts,
		})
		taken = append(taken, level)
	}

	return Decision{Alerts: accepted}
}

func (e *Engine) capFor(user models.User) int {
	if user.Registered() {
		return e.limits.MaxRegistered
	}
	return e.limits.MaxGuest
}

// checkCountOnly: проверки, не зависящие от сохранённых алертов.
func (e *Engine) checkCountOnly(req Request) *models.Rejection {
	if len(req.Levels) == 0 {
		return models.Reject(models.RejectCapacity, "No alert levels",
			"Provide at least one trigger level.")
	}
	if len(req.Levels) > e.limits.MaxLevelsPerCall {
		return models.Reject(models.RejectCapacity, "Too many levels",
			"You can only set up to %d alerts at a time.", e.limits.MaxLevelsPerCall)
	}
	return nil
}

func (e *Engine) checkCapacity(req Request, existing []models.PriceAlert) *models.Rejection {
	if rej := e.checkCountOnly(req); rej != nil {
		return rej
	}
	limit := e.capFor(req.User)
	if len(existing) >= limit || len(existing)+len(req.Levels) > limit {
		return models.Reject(models.RejectCapacity, "Maximum number of alerts reached",
			"You can only create up to %d price alerts.", limit)
	}
	return nil
}

func (e *Engine) checkDuplicate(ticker models.Ticker, level float64, taken []float64) *models.Rejection {
	lo := 1 - e.limits.DuplicateTolerance
	hi := 1 + e.limits.DuplicateTolerance
	for _, existing := range taken {
		if existing == level {
			return models.Reject(models.RejectDuplicate, "Alert already exists",
				"A price alert for %s at %s already exists.", displayName(ticker), LevelText(level))
		}
		if existing*lo < level && level < existing*hi {
			return models.Reject(models.RejectNearDuplicate, "Alert already exists",
				"A price alert for %s within %s%% of your level already exists at %s.",
				displayName(ticker), LevelText(e.limits.DuplicateTolerance*100), LevelText(existing))
		}
	}
	return nil
}

func (e *Engine) checkBounds(ticker models.Ticker, level float64, levelText string, quote models.Quote) *models.Rejection {
	current := quote.Close
	if current*e.limits.LowerBound > level || current*e.limits.UpperBound < level {
		return models.Reject(models.RejectOutOfBounds, "Alert level too far from current price",
			"Your desired alert trigger level at %s for %s is too far from the current price of %s.",
			levelText, displayName(ticker), LevelText(current)).WithFooter(quote.SourceText)
	}
	return nil
}

func displayName(t models.Ticker) string {
	if t.Name != "" {
		return t.Name
	}
	if t.ID != "" {
		return t.ID
	}
	return t.Symbol
}
