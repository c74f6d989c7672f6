package store

import (
	"context"

	"gorm.io/gorm"

	"chatapp_backend/models"
)

type gormInviteStore struct {
	db *gorm.DB
}

func (s *gormInviteStore) Add(ctx context.Context, invite *models.Invite) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Create(invite).Error
	})
}

func (s *gormInviteStore) Delete(ctx context.Context, id string) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Delete(&models.Invite{}, "id = ?", id).Error
	})
}

func (s *gormInviteStore) PendingForReceiver(ctx context.Context, receiverID string) ([]models.Invite, error) {
	var invites []models.Invite
	err := retryRead(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Where("receiver_id = ?", receiverID).
			Order("sent_time ASC").
			Find(&invites).Error
	})
	if err != nil {
		return nil, err
	}
	return invites, nil
}

func (s *gormInviteStore) DeleteByRoom(ctx context.Context, roomID string) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Delete(&models.Invite{}, "room_id = ?", roomID).Error
	})
}
