package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatapp_backend/models"
)

type gormRoomStore struct {
	db *gorm.DB
}

func (s *gormRoomStore) GetByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	err := retryRead(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).First(&room, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *gormRoomStore) GetByInviteCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := retryRead(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).First(&room, "invite_code = ?", code).Error
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *gormRoomStore) All(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := retryRead(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Find(&rooms).Error
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *gormRoomStore) Ensure(ctx context.Context, room *models.Room) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
			Create(room).Error
	})
}

func (s *gormRoomStore) Save(ctx context.Context, room *models.Room) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Save(room).Error
	})
}

func (s *gormRoomStore) Delete(ctx context.Context, id string) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Delete(&models.Room{}, "id = ?", id).Error
	})
}
