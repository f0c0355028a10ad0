package memory

import (
	"context"
	"sync"

	domain "github.com/pharmakart/pharmakart/internal/domain/user"
)

type UserDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]*domain.User
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{byEmail: make(map[string]*domain.User)}
}

func (d *UserDirectory) Add(u *domain.User) {
	if u == nil {
		return
	}
	d.mu.Lock()
	clone := *u
	d.byEmail[u.Email] = &clone
	d.mu.Unlock()
}

func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	_ = ctx

	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *u
	return &clone, nil
}
