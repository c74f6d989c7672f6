package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatapp_backend/models"
)

type gormUserStore struct {
	db *gorm.DB
}

func (s *gormUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := retryRead(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := retryRead(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).First(&user, "username = ?", username).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	err := retryRead(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Where("username LIKE ?", "%"+query+"%").
			Limit(limit).
			Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *gormUserStore) Ensure(ctx context.Context, user *models.User) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
			Create(user).Error
	})
}

func (s *gormUserStore) Create(ctx context.Context, user *models.User) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Create(user).Error
	})
}

func (s *gormUserStore) Save(ctx context.Context, user *models.User) error {
	return write(ctx, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Save(user).Error
	})
}
