// Package store provides the repository layer between the chat core and the
// relational record store. Every operation runs under a bounded timeout so
// store I/O can never hang the coordinating process; reads get a small number
// of retries, writes fail fast and surface as transient errors.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"chatapp_backend/models"
)

const (
	opTimeout    = 5 * time.Second
	readAttempts = 3
)

// Stores bundles the repositories the chat core depends on.
type Stores struct {
	Users    UserStore
	Rooms    RoomStore
	Messages MessageStore
	Invites  InviteStore
}

// New wires all repositories against one gorm connection.
func New(db *gorm.DB) *Stores {
	return &Stores{
		Users:    &gormUserStore{db: db},
		Rooms:    &gormRoomStore{db: db},
		Messages: &gormMessageStore{db: db},
		Invites:  &gormInviteStore{db: db},
	}
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	// Ensure inserts the user if its primary key is absent. Concurrent calls
	// for the same id are idempotent; the existing row always wins.
	Ensure(ctx context.Context, user *models.User) error
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
}

type RoomStore interface {
	GetByID(ctx context.Context, id string) (*models.Room, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Room, error)
	All(ctx context.Context) ([]models.Room, error)
	// Ensure inserts the room if its primary key is absent (upsert-by-key, no
	// duplicate rows under concurrency).
	Ensure(ctx context.Context, room *models.Room) error
	Save(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
}

type MessageStore interface {
	Append(ctx context.Context, msg *models.Message) error
	ByRoom(ctx context.Context, roomID string) ([]models.Message, error)
	// LatestSentTime returns the newest sent time in the room, or the zero
	// time when the room has no messages.
	LatestSentTime(ctx context.Context, roomID string) (time.Time, error)
	DeleteByRoom(ctx context.Context, roomID string) error
}

type InviteStore interface {
	Add(ctx context.Context, invite *models.Invite) error
	// Delete removes one invite, typically right after it was delivered.
	Delete(ctx context.Context, id string) error
	// PendingForReceiver lists undelivered invites, oldest first.
	PendingForReceiver(ctx context.Context, receiverID string) ([]models.Invite, error)
	DeleteByRoom(ctx context.Context, roomID string) error
}

// retryRead runs fn up to readAttempts times with a fresh timeout per attempt.
// Not-found short-circuits; anything else exhausts retries and comes back as
// a transient failure.
func retryRead(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for i := 0; i < readAttempts; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, opTimeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrTransient, lastErr)
}

// write runs fn once under a bounded timeout. No silent partial writes: any
// failure is reported to the caller as transient (or conflict).
func write(ctx context.Context, fn func(ctx context.Context) error) error {
	writeCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := fn(writeCtx); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
