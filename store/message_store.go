package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"chatapp_backend/models"
)

type gormMessageStore struct {
	db *gorm.DB
}

func (s *gormMessageStore) Append(ctx context.Context, msg *models.Message) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Create(msg).Error
	})
}

func (s *gormMessageStore) ByRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	var messages []models.Message
	err := retryRead(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Where("room_id = ?", roomID).
			Order("sent_time ASC").
			Find(&messages).Error
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *gormMessageStore) LatestSentTime(ctx context.Context, roomID string) (time.Time, error) {
	var msg models.Message
	err := retryRead(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Where("room_id = ?", roomID).
			Order("sent_time DESC").
			First(&msg).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return msg.SentTime, nil
}

func (s *gormMessageStore) DeleteByRoom(ctx context.Context, roomID string) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Delete(&models.Message{}, "room_id = ?", roomID).Error
	})
}
