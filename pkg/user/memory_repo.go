package user

import (
	"context"
	"sync"
)

// MemoryRepo keeps users in process memory; used for local runs and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Email]; ok {
		return ErrEmailTaken
	}
	r.users[user.Email] = *user
	return nil
}

func (r *MemoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
