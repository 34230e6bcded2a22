package memory

import (
	"alpha_bot/internal/models"
	"alpha_bot/internal/modules/paper/service"
	"context"
	"sort"
	"sync"
)

// Store держит счета и заявки в памяти процесса.
type Store struct {
	mu      sync.Mutex
	ledgers map[string]*models.Ledger
	orders  map[string]map[string]models.PaperOrder
}

func NewStore() *Store {
	return &Store{
		ledgers: make(map[string]*models.Ledger),
		orders:  make(map[string]map[string]models.PaperOrder),
	}
}

func (s *Store) Ledger(ctx context.Context, ownerID string) (*models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledgers[ownerID].Clone(), nil
}

func (s *Store) OpenOrders(ctx context.Context, ownerID string) ([]models.PaperOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(ownerID), nil
}

func (s *Store) AllOpenOrders(ctx context.Context) ([]models.PaperOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PaperOrder
	for owner := range s.orders {
		out = append(out, s.openLocked(owner)...)
	}
	sortOrders(out)
	return out, nil
}

func (s *Store) Update(ctx context.Context, ownerID string, fn service.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mut, err := fn(s.ledgers[ownerID].Clone(), s.openLocked(ownerID))
	if err != nil || mut == nil {
		return err
	}

	if mut.Ledger != nil {
		s.ledgers[ownerID] = mut.Ledger.Clone()
	}
	if mut.ClearOrders {
		delete(s.orders, ownerID)
	}
	for _, o := range mut.Orders {
		if s.orders[ownerID] == nil {
			s.orders[ownerID] = make(map[string]models.PaperOrder)
		}
		s.orders[ownerID][o.ID] = o
	}
	return nil
}

func (s *Store) openLocked(ownerID string) []models.PaperOrder {
	var out []models.PaperOrder
	for _, o := range s.orders[ownerID] {
		if o.Status == models.OrderOpen {
			out = append(out, o)
		}
	}
	sortOrders(out)
	return out
}

func sortOrders(orders []models.PaperOrder) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
}
