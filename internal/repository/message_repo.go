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

// MessageRepository persists message records and maintains the append-only
// reverse indices (`room_messages:{room}`, `dm_messages:{dm}`) used for
// per-container listing without full keyspace scans.
type MessageRepository interface {
	Get(ctx context.Context, id string) (models.Message, error)
	Save(ctx context.Context, message *models.Message) error
	AppendToRoom(ctx context.Context, roomID, messageID string) error
	AppendToChannel(ctx context.Context, dmID, messageID string) error
	ListByRoom(ctx context.Context, roomID string) ([]models.Message, error)
	ListByChannel(ctx context.Context, dmID string) ([]models.Message, error)
	ListBySender(ctx context.Context, senderID string) ([]models.Message, error)
}

type messageRepository struct {
	kv store.KV
}

// NewMessageRepository constructs a message repository over the KV store.
func NewMessageRepository(kv store.KV) MessageRepository {
	return &messageRepository{kv: kv}
}

func (r *messageRepository) Get(ctx context.Context, id string) (models.Message, error) {
	data, err := r.kv.Get(ctx, messageKey(id))
	if errors.Is(err, store.ErrKeyNotFound) {
		return models.Message{}, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}

	var message models.Message
	if err := json.Unmarshal(data, &message); err != nil {
		return models.Message{}, fmt.Errorf("corrupt message record %s: %w", id, err)
	}
	return message, nil
}

func (r *messageRepository) Save(ctx context.Context, message *models.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, messageKey(message.ID), data)
}

func (r *messageRepository) AppendToRoom(ctx context.Context, roomID, messageID string) error {
	return r.appendToIndex(ctx, roomMessagesKey(roomID), messageID)
}

func (r *messageRepository) AppendToChannel(ctx context.Context, dmID, messageID string) error {
	return r.appendToIndex(ctx, dmMessagesKey(dmID), messageID)
}

// appendToIndex is a read-modify-write on the id-list record; concurrent
// appends on the same container can race, which the engine accepts.
func (r *messageRepository) appendToIndex(ctx context.Context, key, messageID string) error {
	ids, err := r.readIndex(ctx, key)
	if err != nil {
		return err
	}

	ids = append(ids, messageID)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, key, data)
}

func (r *messageRepository) readIndex(ctx context.Context, key string) ([]string, error) {
	data, err := r.kv.Get(ctx, key)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("corrupt message index %s: %w", key, err)
	}
	return ids, nil
}

func (r *messageRepository) ListByRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	return r.listByIndex(ctx, roomMessagesKey(roomID))
}

func (r *messageRepository) ListByChannel(ctx context.Context, dmID string) ([]models.Message, error) {
	return r.listByIndex(ctx, dmMessagesKey(dmID))
}

func (r *messageRepository) listByIndex(ctx context.Context, key string) ([]models.Message, error) {
	ids, err := r.readIndex(ctx, key)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		message, err := r.Get(ctx, id)
		if errors.Is(err, apperrors.ErrMessageNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	return messages, nil
}

func (r *messageRepository) ListBySender(ctx context.Context, senderID string) ([]models.Message, error) {
	records, err := r.kv.GetByPrefix(ctx, messageKeyPrefix)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0)
	for key, data := range records {
		var message models.Message
		if err := json.Unmarshal(data, &message); err != nil {
			return nil, fmt.Errorf("corrupt message record %s: %w", key, err)
		}
		if message.SenderID == senderID {
			messages = append(messages, message)
		}
	}
	return messages, nil
}
