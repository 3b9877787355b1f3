// Package cached wraps repositories with an in-process LRU.
package cached

import (
	"context"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/repository"
)

// UserRepo caches users by id. Users are never mutated after registration,
// so entries do not need invalidation beyond eviction.
type UserRepo struct {
	repository.UserRepository
	cache *lru.Cache[uuid.UUID, domain.User]
}

func NewUserRepo(inner repository.UserRepository, size int) (*UserRepo, error) {
	cache, err := lru.New[uuid.UUID, domain.User](size)
	if err != nil {
		return nil, err
	}
	return &UserRepo{UserRepository: inner, cache: cache}, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := r.cache.Get(id); ok {
		return &u, nil
	}
	u, err := r.UserRepository.GetByID(ctx, id)
	if err != nil || u == nil {
		return u, err
	}
	r.cache.Add(id, *u)
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	if err := r.UserRepository.Create(ctx, user); err != nil {
		return err
	}
	r.cache.Add(user.ID, *user)
	return nil
}
