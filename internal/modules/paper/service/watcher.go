package service

import (
	"alpha_bot/internal/models"
	"alpha_bot/pkg/logger"
	"context"
	"time"

	"github.com/pkg/errors"
)

// FillNotifier сообщает пользователю об исполненной лимитке.
type FillNotifier interface {
	OrderFilled(ctx context.Context, order models.PaperOrder)
}

// Heartbeat отмечает живость фонового цикла для /healthz.
type Heartbeat interface {
	TouchTick(t time.Time)
}

// FillOpen checks every open limit order against the latest close and
// fills the crossed ones. Candles are fetched once per instrument.
func (s *Service) FillOpen(ctx context.Context) ([]models.PaperOrder, error) {
	open, err := s.repo.AllOpenOrders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load open orders")
	}

	closes := make(map[string]float64)
	var filled []models.PaperOrder
	for _, o := range open {
		key := o.Ticker.Fingerprint()
		close, ok := closes[key]
		if !ok {
			q, err := s.quotes.Candle(ctx, o.Ticker, "")
			if err != nil {
				logger.Warn("[FILL] candle %s: %v", o.Ticker.ID, err)
				continue
			}
			close = q.Close
			closes[key] = close
		}
		if !o.Crossed(close) {
			continue
		}

		done, err := s.fill(ctx, o)
		if err != nil {
			logger.Error("[FILL] order %s: %v", o.ID, err)
			continue
		}
		if done != nil {
			filled = append(filled, *done)
		}
	}
	return filled, nil
}

func (s *Service) fill(ctx context.Context, target models.PaperOrder) (*models.PaperOrder, error) {
	unlock, err := s.locker.Lock(ctx, lockKey(target.OwnerID))
	if err != nil {
		return nil, errors.Wrap(err, "lock paper owner")
	}
	defer unlock()

	var done *models.PaperOrder
	err = s.repo.Update(ctx, target.OwnerID, func(ledger *models.Ledger, open []models.PaperOrder) (*Mutation, error) {
		order, ok := findOrder(open, target.ID)
		// отменили или сбросили, пока ждали блокировку
		if !ok || !ledger.Active() {
			return nil, nil
		}
		next := ledger.Clone()
		s.engine.Fill(next.Balance, order.PendingOrder)

		order.Status = models.OrderFilled
		order.ClosedAt = s.engine.now().Unix()
		done = &order
		return &Mutation{Ledger: next, Orders: []models.PaperOrder{order}}, nil
	})
	if err != nil {
		return nil, err
	}
	if done != nil {
		s.m.OrderFills.Inc()
	}
	return done, nil
}

// Watcher periodically runs FillOpen.
type Watcher struct {
	svc      *Service
	interval time.Duration
	notify   FillNotifier
	beat     Heartbeat
}

func NewWatcher(svc *Service, interval time.Duration, notify FillNotifier, beat Heartbeat) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{svc: svc, interval: interval, notify: notify, beat: beat}
}

func (w *Watcher) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	logger.Info("[FILL] watcher started, every %s", w.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick: один проход; возвращает число исполненных заявок.
func (w *Watcher) Tick(ctx context.Context) int {
	filled, err := w.svc.FillOpen(ctx)
	if err != nil {
		logger.Error("[FILL] %v", err)
		return 0
	}
	if w.beat != nil {
		w.beat.TouchTick(time.Now())
	}
	for _, o := range filled {
		if w.notify != nil {
			w.notify.OrderFilled(ctx, o)
		}
	}
	return len(filled)
}
