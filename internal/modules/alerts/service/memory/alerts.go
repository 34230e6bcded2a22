package memory

import (
	"alpha_bot/internal/models"
	"context"
	"sync"
)

// Alerts: in-process хранилище, когда база не настроена.
type Alerts struct {
	mu   sync.RWMutex
	data map[string][]models.PriceAlert
}

func NewAlerts() *Alerts {
	return &Alerts{data: make(map[string][]models.PriceAlert)}
}

func (a *Alerts) ListByOwners(ctx context.Context, ownerIDs []string) ([]models.PriceAlert, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []models.PriceAlert
	for _, owner := range ownerIDs {
		out = append(out, a.data[owner]...)
	}
	return out, nil
}

func (a *Alerts) Insert(ctx context.Context, alerts []models.PriceAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, al := range alerts {
		a.data[al.OwnerID] = append(a.data[al.OwnerID], al)
	}
	return nil
}

func (a *Alerts) Delete(ctx context.Context, ownerIDs []string, id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, owner := range ownerIDs {
		list := a.data[owner]
		for i, al := range list {
			if al.ID != id {
				continue
			}
			a.data[owner] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
