package service

import (
	"alpha_bot/internal/instrumentation"
	"alpha_bot/internal/models"
	"alpha_bot/pkg/logger"
	"alpha_bot/pkg/tracing"
	"context"

	"github.com/pkg/errors"
)

// Mutation: то, что нужно записать по итогам работы под блокировкой.
type Mutation struct {
	Ledger      *models.Ledger
	Orders      []models.PaperOrder
	ClearOrders bool
}

// UpdateFunc получает текущий счёт (nil, если его нет) и открытые заявки.
// nil Mutation: ничего не писать.
type UpdateFunc func(ledger *models.Ledger, open []models.PaperOrder) (*Mutation, error)

type Repository interface {
	Ledger(ctx context.Context, ownerID string) (*models.Ledger, error)
	OpenOrders(ctx context.Context, ownerID string) ([]models.PaperOrder, error)
	AllOpenOrders(ctx context.Context) ([]models.PaperOrder, error)
	// Update выполняет read-validate-write атомарно.
	Update(ctx context.Context, ownerID string, fn UpdateFunc) error
}

type QuoteSource interface {
	Candle(ctx context.Context, ticker models.Ticker, platform string) (models.Quote, error)
}

type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type Service struct {
	engine *Engine
	repo   Repository
	quotes QuoteSource
	locker Locker
	m      *instrumentation.Metrics
}

func New(engine *Engine, repo Repository, quotes QuoteSource, locker Locker, m *instrumentation.Metrics) *Service {
	return &Service{
		engine: engine,
		repo:   repo,
		quotes: quotes,
		locker: locker,
		m:      m,
	}
}

func lockKey(owner string) string { return "paper:" + owner }

// Preview validates the trade and returns a frozen order to be confirmed.
// Nothing is persisted.
func (s *Service) Preview(ctx context.Context, req TradeRequest) (Preview, error) {
	span, ctx := tracing.StartSpan(ctx, "paper.preview")
	defer span.Finish()
	span.SetTag("owner", req.User.OwnerID())

	quote, err := s.quotes.Candle(ctx, req.Ticker, req.Platform)
	if err != nil {
		tracing.Fail(span, err)
		return Preview{}, errors.Wrapf(err, "fetch candle for %s", req.Ticker.ID)
	}

	owner := req.User.OwnerID()
	ledger, err := s.repo.Ledger(ctx, owner)
	if err != nil {
		tracing.Fail(span, err)
		return Preview{}, errors.Wrap(err, "load ledger")
	}
	open, err := s.repo.OpenOrders(ctx, owner)
	if err != nil {
		tracing.Fail(span, err)
		return Preview{}, errors.Wrap(err, "load open orders")
	}

	p, err := s.engine.Process(req, quote, ledger, len(open))
	if err != nil {
		tracing.Fail(span, err)
		return Preview{}, errors.Wrap(err, "process trade")
	}
	if p.Rejection != nil {
		s.reject(p.Rejection)
	}
	return p, nil
}

// Commit applies a confirmed order against the balance as it is now.
func (s *Service) Commit(ctx context.Context, order models.PendingOrder) (*models.Rejection, error) {
	span, ctx := tracing.StartSpan(ctx, "paper.commit")
	defer span.Finish()
	span.SetTag("owner", order.OwnerID)
	span.SetTag("order", order.ID)

	if rej := s.engine.Expired(order); rej != nil {
		s.reject(rej)
		return rej, nil
	}

	unlock, err := s.locker.Lock(ctx, lockKey(order.OwnerID))
	if err != nil {
		tracing.Fail(span, err)
		return nil, errors.Wrap(err, "lock paper owner")
	}
	defer unlock()

	var rej *models.Rejection
	err = s.repo.Update(ctx, order.OwnerID, func(ledger *models.Ledger, open []models.PaperOrder) (*Mutation, error) {
		next := s.engine.Open(ledger, order.OwnerID, order.Venue)
		// баланс мог измениться, пока пользователь думал
		if rej = s.engine.Validate(order, next.Balance); rej != nil {
			return nil, nil
		}
		if rej = s.engine.checkOpenOrders(order, len(open)); rej != nil {
			return nil, nil
		}

		s.engine.Apply(next.Balance, order)
		if err := next.Balance.Validate(); err != nil {
			return nil, err
		}

		record := models.PaperOrder{PendingOrder: order, Status: models.OrderOpen}
		if !order.IsLimit {
			record.Status = models.OrderFilled
			record.ClosedAt = s.engine.now().Unix()
		}
		return &Mutation{Ledger: next, Orders: []models.PaperOrder{record}}, nil
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, errors.Wrapf(err, "commit order %s", order.ID)
	}
	if rej != nil {
		s.reject(rej)
		return rej, nil
	}

	execution := "market"
	if order.IsLimit {
		execution = "limit"
	}
	s.m.PaperOrders.WithLabelValues(string(order.OrderType), execution).Inc()
	logger.Info("[PAPER] owner=%s %s %s %s @ %s (%s)",
		order.OwnerID, order.OrderType, order.AmountText, order.BaseAsset, order.PriceText, execution)
	return nil, nil
}

// CancelOrder refunds an open limit order.
func (s *Service) CancelOrder(ctx context.Context, user models.User, orderID string) (*models.Rejection, error) {
	owner := user.OwnerID()
	unlock, err := s.locker.Lock(ctx, lockKey(owner))
	if err != nil {
		return nil, errors.Wrap(err, "lock paper owner")
	}
	defer unlock()

	var rej *models.Rejection
	err = s.repo.Update(ctx, owner, func(ledger *models.Ledger, open []models.PaperOrder) (*Mutation, error) {
		order, ok := findOrder(open, orderID)
		if !ok || !ledger.Active() {
			rej = models.Reject(models.RejectNotFound, "Order not found",
				"No open paper order with id %s.", orderID)
			return nil, nil
		}
		next := ledger.Clone()
		s.engine.Cancel(next.Balance, order.PendingOrder)

		order.Status = models.OrderCanceled
		order.ClosedAt = s.engine.now().Unix()
		return &Mutation{Ledger: next, Orders: []models.PaperOrder{order}}, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cancel order %s", orderID)
	}
	return rej, nil
}

// CheckReset: проверка без изменений, для подтверждения.
func (s *Service) CheckReset(ctx context.Context, user models.User) (*models.Rejection, error) {
	ledger, err := s.repo.Ledger(ctx, user.OwnerID())
	if err != nil {
		return nil, errors.Wrap(err, "load ledger")
	}
	return s.engine.CheckReset(ledger), nil
}

// Reset wipes the paper account once the cooldown has passed.
func (s *Service) Reset(ctx context.Context, user models.User) (*models.Rejection, error) {
	owner := user.OwnerID()
	unlock, err := s.locker.Lock(ctx, lockKey(owner))
	if err != nil {
		return nil, errors.Wrap(err, "lock paper owner")
	}
	defer unlock()

	var rej *models.Rejection
	err = s.repo.Update(ctx, owner, func(ledger *models.Ledger, _ []models.PaperOrder) (*Mutation, error) {
		if rej = s.engine.CheckReset(ledger); rej != nil {
			return nil, nil
		}
		return &Mutation{Ledger: s.engine.Reset(ledger), ClearOrders: true}, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reset ledger")
	}
	if rej != nil {
		s.reject(rej)
		return rej, nil
	}
	s.m.PaperResets.Inc()
	logger.Info("[PAPER] owner=%s balance reset", owner)
	return nil, nil
}

// Balance returns the owner's ledger, nil if they never traded.
func (s *Service) Balance(ctx context.Context, user models.User) (*models.Ledger, error) {
	ledger, err := s.repo.Ledger(ctx, user.OwnerID())
	if err != nil {
		return nil, errors.Wrap(err, "load ledger")
	}
	return ledger, nil
}

func (s *Service) OpenOrders(ctx context.Context, user models.User) ([]models.PaperOrder, error) {
	orders, err := s.repo.OpenOrders(ctx, user.OwnerID())
	if err != nil {
		return nil, errors.Wrap(err, "load open orders")
	}
	return orders, nil
}

func (s *Service) reject(rej *models.Rejection) {
	s.m.PaperRejections.WithLabelValues(string(rej.Kind)).Inc()
}

func findOrder(orders []models.PaperOrder, id string) (models.PaperOrder, bool) {
	for _, o := range orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.PaperOrder{}, false
}
