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

// PollRepository persists poll records keyed by their carrier message id.
type PollRepository interface {
	Get(ctx context.Context, id string) (models.Poll, error)
	Save(ctx context.Context, poll *models.Poll) error
}

type pollRepository struct {
	kv store.KV
}

// NewPollRepository constructs a poll repository over the KV store.
func NewPollRepository(kv store.KV) PollRepository {
	return &pollRepository{kv: kv}
}

func (r *pollRepository) Get(ctx context.Context, id string) (models.Poll, error) {
	data, err := r.kv.Get(ctx, pollKey(id))
	if errors.Is(err, store.ErrKeyNotFound) {
		return models.Poll{}, apperrors.ErrPollNotFound
	}
	if err != nil {
		return models.Poll{}, err
	}

	var poll models.Poll
	if err := json.Unmarshal(data, &poll); err != nil {
		return models.Poll{}, fmt.Errorf("corrupt poll record %s: %w", id, err)
	}
	return poll, nil
}

func (r *pollRepository) Save(ctx context.Context, poll *models.Poll) error {
	data, err := json.Marshal(poll)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, pollKey(poll.ID), data)
}
