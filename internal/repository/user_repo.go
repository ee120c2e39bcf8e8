package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/internal/store"
	"github.com/parleyhq/parley-api/pkg/apperrors"
)

// UserRepository persists account records.
type UserRepository interface {
	Get(ctx context.Context, id string) (models.User, error)
	Save(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	kv store.KV
}

// NewUserRepository constructs a user repository over the KV store.
func NewUserRepository(kv store.KV) UserRepository {
	return &userRepository{kv: kv}
}

func (r *userRepository) Get(ctx context.Context, id string) (models.User, error) {
	data, err := r.kv.Get(ctx, userKey(id))
	if errors.Is(err, store.ErrKeyNotFound) {
		return models.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return models.User{}, fmt.Errorf("corrupt user record %s: %w", id, err)
	}
	return user, nil
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, userKey(user.ID), data)
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	records, err := r.kv.GetByPrefix(ctx, userKeyPrefix)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(records))
	for key, data := range records {
		var user models.User
		if err := json.Unmarshal(data, &user); err != nil {
			return nil, fmt.Errorf("corrupt user record %s: %w", key, err)
		}
		users = append(users, user)
	}
	return users, nil
}
