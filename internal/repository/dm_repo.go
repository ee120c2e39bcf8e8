package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/internal/store"
	"github.com/parleyhq/parley-api/pkg/apperrors"
)

// DirectChannelRepository persists pairwise direct-message channels.
type DirectChannelRepository interface {
	Get(ctx context.Context, id string) (models.DirectChannel, error)
	Save(ctx context.Context, channel *models.DirectChannel) error
	ListForUser(ctx context.Context, userID string) ([]models.DirectChannel, error)
}

type dmRepository struct {
	kv store.KV
}

// NewDirectChannelRepository constructs a DM repository over the KV store.
func NewDirectChannelRepository(kv store.KV) DirectChannelRepository {
	return &dmRepository{kv: kv}
}

func (r *dmRepository) Get(ctx context.Context, id string) (models.DirectChannel, error) {
	data, err := r.kv.Get(ctx, dmKey(id))
	if errors.Is(err, store.ErrKeyNotFound) {
		return models.DirectChannel{}, apperrors.ErrChannelNotFound
	}
	if err != nil {
		return models.DirectChannel{}, err
	}

	var channel models.DirectChannel
	if err := json.Unmarshal(data, &channel); err != nil {
		return models.DirectChannel{}, fmt.Errorf("corrupt dm record %s: %w", id, err)
	}
	return channel, nil
}

func (r *dmRepository) Save(ctx context.Context, channel *models.DirectChannel) error {
	data, err := json.Marshal(channel)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, dmKey(channel.ID), data)
}

func (r *dmRepository) ListForUser(ctx context.Context, userID string) ([]models.DirectChannel, error) {
	records, err := r.kv.GetByPrefix(ctx, dmKeyPrefix)
	if err != nil {
		return nil, err
	}

	channels := make([]models.DirectChannel, 0)
	for key, data := range records {
		var channel models.DirectChannel
		if err := json.Unmarshal(data, &channel); err != nil {
			return nil, fmt.Errorf("corrupt dm record %s: %w", key, err)
		}
		if channel.HasParticipant(userID) {
			channels = append(channels, channel)
		}
	}

	sort.Slice(channels, func(i, j int) bool {
		return channels[i].UpdatedAt.After(channels[j].UpdatedAt)
	})

	return channels, nil
}
