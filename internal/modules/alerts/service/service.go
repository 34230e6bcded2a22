package service

import (
	"alpha_bot/internal/instrumentation"
	"alpha_bot/internal/models"
	"alpha_bot/pkg/logger"
	"alpha_bot/pkg/tracing"
	"context"
	"sort"

	"github.com/pkg/errors"
)

// Repository хранит алерты; ownerIDs: пользователь и привязанный аккаунт.
type Repository interface {
	ListByOwners(ctx context.Context, ownerIDs []string) ([]models.PriceAlert, error)
	Insert(ctx context.Context, alerts []models.PriceAlert) error
	Delete(ctx context.Context, ownerIDs []string, id string) (bool, error)
}

type QuoteSource interface {
	Candle(ctx context.Context, ticker models.Ticker, platform string) (models.Quote, error)
}

type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Service runs the engine against live data and persists accepted alerts.
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

func lockKey(owner string) string { return "alerts:" + owner }

// Create evaluates all levels of req and stores them atomically.
// A rejection is returned in Decision, error means infrastructure failure.
func (s *Service) Create(ctx context.Context, req Request) (Decision, error) {
	span, ctx := tracing.StartSpan(ctx, "alerts.create")
	defer span.Finish()
	span.SetTag("owner", req.User.OwnerID())
	span.SetTag("levels", len(req.Levels))

	// отказ по количеству не требует котировки
	if rej := s.engine.checkCountOnly(req); rej != nil {
		s.reject(rej)
		return Decision{Rejection: rej}, nil
	}

	// котировку берём до блокировки, чтобы не держать её на сетевом вызове
	quote, err := s.quotes.Candle(ctx, req.Ticker, req.Platform)
	if err != nil {
		tracing.Fail(span, err)
		return Decision{}, errors.Wrapf(err, "fetch candle for %s", req.Ticker.ID)
	}

	unlock, err := s.locker.Lock(ctx, lockKey(req.User.OwnerID()))
	if err != nil {
		tracing.Fail(span, err)
		return Decision{}, errors.Wrap(err, "lock alerts owner")
	}
	defer unlock()

	existing, err := s.repo.ListByOwners(ctx, req.User.OwnerIDs())
	if err != nil {
		tracing.Fail(span, err)
		return Decision{}, errors.Wrap(err, "list alerts")
	}

	decision := s.engine.Evaluate(req, quote, existing)
	if decision.Rejection != nil {
		s.reject(decision.Rejection)
		return decision, nil
	}

	if err := s.repo.Insert(ctx, decision.Alerts); err != nil {
		tracing.Fail(span, err)
		return Decision{}, errors.Wrap(err, "insert alerts")
	}
	s.m.AlertsCreated.Add(float64(len(decision.Alerts)))
	logger.Info("[ALERTS] owner=%s ticker=%s created=%d", req.User.OwnerID(), req.Ticker.ID, len(decision.Alerts))

	return decision, nil
}

// List returns alerts visible to the user, oldest first.
func (s *Service) List(ctx context.Context, user models.User) ([]models.PriceAlert, error) {
	alerts, err := s.repo.ListByOwners(ctx, user.OwnerIDs())
	if err != nil {
		return nil, errors.Wrap(err, "list alerts")
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Timestamp != alerts[j].Timestamp {
			return alerts[i].Timestamp < alerts[j].Timestamp
		}
		return alerts[i].Level < alerts[j].Level
	})
	return alerts, nil
}

func (s *Service) Delete(ctx context.Context, user models.User, id string) (*models.Rejection, error) {
	unlock, err := s.locker.Lock(ctx, lockKey(user.OwnerID()))
	if err != nil {
		return nil, errors.Wrap(err, "lock alerts owner")
	}
	defer unlock()

	ok, err := s.repo.Delete(ctx, user.OwnerIDs(), id)
	if err != nil {
		return nil, errors.Wrapf(err, "delete alert %s", id)
	}
	if !ok {
		return models.Reject(models.RejectNotFound, "Alert not found",
			"No price alert with id %s.", id), nil
	}
	return nil, nil
}

func (s *Service) reject(rej *models.Rejection) {
	s.m.AlertRejections.WithLabelValues(string(rej.Kind)).Inc()
}
