package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatapp_backend/models"
	"chatapp_backend/store"
)

// keyedMutex hands out one mutex per key so mutations on different rooms or
// users never contend with each other.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	m := k.get(key)
	m.Lock()
	return m.Unlock
}

// Ledger is the authoritative room membership state: per room, the ordered
// member list whose index 0 is the owner, mirrored by each user's
// joined-room set and current-room pointer.
//
// Mutating methods assume the caller holds the corresponding LockRoom scope;
// the dispatcher keeps broadcasts inside the same scope so subscribers see
// events in commit order.
type Ledger struct {
	stores *store.Stores
	roomMu keyedMutex
	userMu keyedMutex
}

func NewLedger(stores *store.Stores) *Ledger {
	return &Ledger{stores: stores}
}

// LockRoom serializes all mutations of one room.
func (l *Ledger) LockRoom(roomID string) func() {
	return l.roomMu.Lock(roomID)
}

// LockUser serializes rename/status mutations of one user.
func (l *Ledger) LockUser(userID string) func() {
	return l.userMu.Lock(userID)
}

// EnsureUser fetches the user, auto-provisioning a fresh record on first
// reference to an unknown identifier. The store upsert is idempotent by key,
// so concurrent first references cannot create duplicate rows.
func (l *Ledger) EnsureUser(ctx context.Context, userID, name string) (*models.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidOperation)
	}
	user, err := l.stores.Users.GetByID(ctx, userID)
	if err == nil {
		if name != "" && user.Username != name {
			user.Username = name
			if err := l.stores.Users.Save(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if name == "" {
		name = defaultUserName(userID)
	}
	fresh := &models.User{
		ID:         userID,
		Username:   name,
		State:      string(models.StatusOnline),
		LastSeenAt: time.Now().UTC(),
	}
	if err := l.stores.Users.Ensure(ctx, fresh); err != nil {
		return nil, err
	}
	return l.stores.Users.GetByID(ctx, userID)
}

// EnsureRoom fetches or creates a room. The invite code is a pure function
// of the id, so concurrent creations of the same unknown room converge on an
// identical row; the store write is upsert-by-primary-key and never
// duplicates.
func (l *Ledger) EnsureRoom(ctx context.Context, roomID, name, password string) (*models.Room, error) {
	if roomID == "" {
		roomID = uuid.NewString()
	}
	room, err := l.stores.Rooms.GetByID(ctx, roomID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if name == "" {
		name = defaultRoomName(roomID)
	}
	fresh := &models.Room{
		ID:         roomID,
		Name:       name,
		Password:   password,
		InviteCode: models.DeriveInviteCode(roomID),
		Members:    []string{},
	}
	if err := l.stores.Rooms.Ensure(ctx, fresh); err != nil {
		return nil, err
	}
	return l.stores.Rooms.GetByID(ctx, roomID)
}

// Join adds the user to the room's member list if absent and reports whether
// it was (first-time join). The user's joined-room set gains the room, the
// current-room pointer moves here, and membership of other rooms is left
// untouched: a user belongs to many rooms but is current in at most one.
func (l *Ledger) Join(ctx context.Context, roomID, userID, displayName string) (*models.Room, *models.User, bool, error) {
	room, err := l.stores.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, nil, false, err
	}
	user, err := l.EnsureUser(ctx, userID, displayName)
	if err != nil {
		return nil, nil, false, err
	}

	firstJoin := !room.HasMember(userID)
	if firstJoin {
		room.Members = append(room.Members, userID)
		if err := l.stores.Rooms.Save(ctx, room); err != nil {
			return nil, nil, false, err
		}
	}

	if !user.HasJoined(roomID) {
		user.JoinedRooms = append(user.JoinedRooms, roomID)
	}
	user.CurrentRoomID = &roomID
	user.LastSeenAt = time.Now().UTC()
	if err := l.stores.Users.Save(ctx, user); err != nil {
		return nil, nil, false, err
	}
	return room, user, firstJoin, nil
}

// LeaveTemporary clears the user's current-room pointer only. Membership is
// unaffected and the room is never destroyed here.
func (l *Ledger) LeaveTemporary(ctx context.Context, roomID, userID string) error {
	user, err := l.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.CurrentRoomID == nil || *user.CurrentRoomID != roomID {
		return fmt.Errorf("%w: user is not in the specified room", ErrInvalidOperation)
	}
	user.CurrentRoomID = nil
	return l.stores.Users.Save(ctx, user)
}

// LeavePermanent removes the user from the room's member list and the room
// from the user's joined set. When the member list empties as a result, the
// room and all its messages and pending invites are destroyed; the returned
// flag reports that. An empty room is terminal: it cannot be reoccupied
// under the same identifier.
func (l *Ledger) LeavePermanent(ctx context.Context, roomID, userID string) (bool, error) {
	room, err := l.stores.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	user, err := l.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return l.removeMember(ctx, room, user)
}

// Kick is ownership-gated permanent removal: only the member at index 0 may
// kick, never themselves, and only current members.
func (l *Ledger) Kick(ctx context.Context, roomID, kickerID, targetID string) (bool, error) {
	room, err := l.stores.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	if room.Owner() != kickerID {
		return false, fmt.Errorf("%w: only the room owner can kick", ErrPermissionDenied)
	}
	if targetID == kickerID {
		return false, fmt.Errorf("%w: cannot kick yourself", ErrInvalidOperation)
	}
	if !room.HasMember(targetID) {
		return false, fmt.Errorf("%w: target is not a member of the room", ErrNotFound)
	}
	target, err := l.stores.Users.GetByID(ctx, targetID)
	if err != nil {
		return false, err
	}
	return l.removeMember(ctx, room, target)
}

func (l *Ledger) removeMember(ctx context.Context, room *models.Room, user *models.User) (bool, error) {
	members := room.Members[:0:0]
	for _, id := range room.Members {
		if id != user.ID {
			members = append(members, id)
		}
	}
	room.Members = members

	if user.CurrentRoomID != nil && *user.CurrentRoomID == room.ID {
		user.CurrentRoomID = nil
	}
	joined := user.JoinedRooms[:0:0]
	for _, id := range user.JoinedRooms {
		if id != room.ID {
			joined = append(joined, id)
		}
	}
	user.JoinedRooms = joined

	if err := l.stores.Users.Save(ctx, user); err != nil {
		return false, err
	}

	if len(room.Members) == 0 {
		if err := l.destroyRoom(ctx, room.ID); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, l.stores.Rooms.Save(ctx, room)
}

func (l *Ledger) destroyRoom(ctx context.Context, roomID string) error {
	if err := l.stores.Messages.DeleteByRoom(ctx, roomID); err != nil {
		return err
	}
	if err := l.stores.Invites.DeleteByRoom(ctx, roomID); err != nil {
		return err
	}
	return l.stores.Rooms.Delete(ctx, roomID)
}

func defaultUserName(userID string) string {
	return "User_" + shortID(userID)
}

func defaultRoomName(roomID string) string {
	return "Room_" + shortID(roomID)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
