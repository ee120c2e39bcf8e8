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

// RoomRepository persists room records. Soft-deleted rooms are returned by
// Get so cascades can inspect them; List filters them out.
type RoomRepository interface {
	Get(ctx context.Context, id string) (models.Room, error)
	Save(ctx context.Context, room *models.Room) error
	List(ctx context.Context) ([]models.Room, error)
}

type roomRepository struct {
	kv store.KV
}

// NewRoomRepository constructs a room repository over the KV store.
func NewRoomRepository(kv store.KV) RoomRepository {
	return &roomRepository{kv: kv}
}

func (r *roomRepository) Get(ctx context.Context, id string) (models.Room, error) {
	data, err := r.kv.Get(ctx, roomKey(id))
	if errors.Is(err, store.ErrKeyNotFound) {
		return models.Room{}, apperrors.ErrRoomNotFound
	}
	if err != nil {
		return models.Room{}, err
	}

	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return models.Room{}, fmt.Errorf("corrupt room record %s: %w", id, err)
	}
	return room, nil
}

func (r *roomRepository) Save(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, roomKey(room.ID), data)
}

func (r *roomRepository) List(ctx context.Context) ([]models.Room, error) {
	records, err := r.kv.GetByPrefix(ctx, roomKeyPrefix)
	if err != nil {
		return nil, err
	}

	rooms := make([]models.Room, 0, len(records))
	for key, data := range records {
		var room models.Room
		if err := json.Unmarshal(data, &room); err != nil {
			return nil, fmt.Errorf("corrupt room record %s: %w", key, err)
		}
		if room.Deleted {
			continue
		}
		rooms = append(rooms, room)
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})

	return rooms, nil
}
