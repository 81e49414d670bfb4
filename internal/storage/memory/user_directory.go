package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// UserDirectory in-memory справочник пользователей.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]struct{}
}

// NewUserDirectory создаёт справочник с перечисленными пользователями.
func NewUserDirectory(userIDs ...string) *UserDirectory {
	d := &UserDirectory{users: make(map[string]struct{}, len(userIDs))}
	for _, id := range userIDs {
		d.users[id] = struct{}{}
	}
	return d
}

// Add регистрирует пользователя.
func (d *UserDirectory) Add(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[userID] = struct{}{}
}

func (d *UserDirectory) UserExists(_ context.Context, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[userID]
	return ok, nil
}

var _ domain.UserDirectory = (*UserDirectory)(nil)
