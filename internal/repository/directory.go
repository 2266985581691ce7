package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/support-desk/internal/domain"
)

// UserDirectory resolves user ids into display summaries. Ids that do not
// resolve are simply absent from the result.
type UserDirectory interface {
	FindUsers(ctx context.Context, ids []string) (map[string]domain.UserSummary, error)
}

// OrderDirectory resolves purchase ids into order summaries.
type OrderDirectory interface {
	FindOrders(ctx context.Context, ids []string) (map[string]domain.OrderSummary, error)
}

// MemoryUserDirectory is a fixed set of users.
type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.UserSummary
}

// NewMemoryUserDirectory seeds a directory with users.
func NewMemoryUserDirectory(users ...domain.UserSummary) *MemoryUserDirectory {
	d := &MemoryUserDirectory{users: make(map[string]domain.UserSummary, len(users))}
	d.Add(users...)
	return d
}

// Add registers or replaces users.
func (d *MemoryUserDirectory) Add(users ...domain.UserSummary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range users {
		d.users[u.ID] = u
	}
}

func (d *MemoryUserDirectory) FindUsers(_ context.Context, ids []string) (map[string]domain.UserSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]domain.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// MemoryOrderDirectory is a fixed set of orders.
type MemoryOrderDirectory struct {
	mu     sync.RWMutex
	orders map[string]domain.OrderSummary
}

// NewMemoryOrderDirectory seeds a directory with orders.
func NewMemoryOrderDirectory(orders ...domain.OrderSummary) *MemoryOrderDirectory {
	d := &MemoryOrderDirectory{orders: make(map[string]domain.OrderSummary, len(orders))}
	d.Add(orders...)
	return d
}

// Add registers or replaces orders.
func (d *MemoryOrderDirectory) Add(orders ...domain.OrderSummary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, o := range orders {
		d.orders[o.ID] = o
	}
}

func (d *MemoryOrderDirectory) FindOrders(_ context.Context, ids []string) (map[string]domain.OrderSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]domain.OrderSummary, len(ids))
	for _, id := range ids {
		if o, ok := d.orders[id]; ok {
			out[id] = o
		}
	}
	return out, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
