package ws

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatapp_backend/models"
	"chatapp_backend/store"
)

func newTestHub(t *testing.T) (*Hub, *store.Stores) {
	t.Helper()
	stores := newTestStores(t)
	return NewHub(stores), stores
}

func lastNotice(t *testing.T, conn *fakeConn) interface{} {
	t.Helper()
	sent := conn.sent()
	require.NotEmpty(t, sent)
	return sent[len(sent)-1]
}

func TestRegisterAutoProvisionsUser(t *testing.T) {
	hub, stores := newTestHub(t)
	conn := &fakeConn{}
	userID := uuid.NewString()

	hub.Dispatcher().Dispatch(conn, Event{Type: EventRegister, UserID: userID, Name: "alice"})

	notice, ok := lastNotice(t, conn).(RegisteredNotice)
	require.True(t, ok, "expected a registered notice, got %T", lastNotice(t, conn))
	assert.Equal(t, userID, notice.UserID)
	assert.Equal(t, "alice", notice.Name)

	user, err := stores.Users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.LastSeenAt.IsZero(), "bind must update last seen")
	assert.True(t, hub.Online(userID))
}

func TestRegisterWithoutUserIDFailsSoft(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := &fakeConn{}

	hub.Dispatcher().Dispatch(conn, Event{Type: EventRegister})

	_, ok := lastNotice(t, conn).(ErrorNotice)
	assert.True(t, ok, "expected an error notice")
}

func TestJoinUnknownRoomFailsSoft(t *testing.T) {
	hub, stores := newTestHub(t)
	conn := &fakeConn{}
	userID := uuid.NewString()

	hub.Dispatcher().Dispatch(conn, Event{Type: EventJoin, UserID: userID, RoomID: uuid.NewString()})

	_, ok := lastNotice(t, conn).(ErrorNotice)
	assert.True(t, ok, "joining a nonexistent room reports an error to the caller only")

	// Fail soft: no partial mutation, the user was not provisioned into a room.
	if user, err := stores.Users.GetByID(context.Background(), userID); err == nil {
		assert.Empty(t, user.JoinedRooms)
	}
}

func TestRepeatJoinProducesOneSystemMessage(t *testing.T) {
	hub, stores := newTestHub(t)
	ctx := context.Background()
	conn := &fakeConn{}
	userID := uuid.NewString()

	room, err := hub.Ledger().EnsureRoom(ctx, uuid.NewString(), "Lobby", "")
	require.NoError(t, err)

	hub.Dispatcher().Dispatch(conn, Event{Type: EventJoin, UserID: userID, RoomID: room.ID, Name: "alice"})
	hub.Dispatcher().Dispatch(conn, Event{Type: EventJoin, UserID: userID, RoomID: room.ID})

	messages, err := stores.Messages.ByRoom(ctx, room.ID)
	require.NoError(t, err)

	var systemCount int
	for _, m := range messages {
		if m.System {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount, "repeat joins must not synthesize another joined notice")
}

func TestSystemMessageTimestampedAfterLatest(t *testing.T) {
	hub, stores := newTestHub(t)
	ctx := context.Background()
	conn := &fakeConn{}
	userID := uuid.NewString()

	room, err := hub.Ledger().EnsureRoom(ctx, uuid.NewString(), "Lobby", "")
	require.NoError(t, err)

	// Seed a message dated in the future so "now" would sort before it.
	future := time.Now().UTC().Add(time.Hour)
	require.NoError(t, stores.Messages.Append(ctx, &models.Message{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		UserID:   uuid.NewString(),
		Content:  "from the future",
		SentTime: future,
	}))

	hub.Dispatcher().Dispatch(conn, Event{Type: EventJoin, UserID: userID, RoomID: room.ID, Name: "alice"})

	messages, err := stores.Messages.ByRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	var system *models.Message
	for i := range messages {
		if messages[i].System {
			system = &messages[i]
		}
	}
	require.NotNil(t, system)
	assert.True(t, system.SentTime.After(future),
		"system message %v must be strictly after latest existing %v", system.SentTime, future)
}

func TestMessageBroadcastUsesCurrentName(t *testing.T) {
	hub, _ := newTestHub(t)
	ctx := context.Background()
	connA := &fakeConn{}
	connB := &fakeConn{}
	userA := uuid.NewString()
	userB := uuid.NewString()

	room, err := hub.Ledger().EnsureRoom(ctx, uuid.NewString(), "Lobby", "")
	require.NoError(t, err)

	hub.Dispatcher().Dispatch(connA, Event{Type: EventJoin, UserID: userA, RoomID: room.ID, Name: "alice"})
	hub.Dispatcher().Dispatch(connB, Event{Type: EventJoin, UserID: userB, RoomID: room.ID, Name: "bob"})
	hub.Dispatcher().Dispatch(connA, Event{Type: EventNick, UserID: userA, Name: "alicia"})
	connB.reset()

	hub.Dispatcher().Dispatch(connA, Event{Type: EventMessage, UserID: userA, RoomID: room.ID, Content: "hi"})

	notice, ok := lastNotice(t, connB).(MessageNotice)
	require.True(t, ok)
	assert.Equal(t, "alicia", notice.UserName, "author name resolves at send time")
	assert.Equal(t, "hi", notice.Content)
}

func TestKickNoticeOrdering(t *testing.T) {
	hub, _ := newTestHub(t)
	ctx := context.Background()
	owner := &fakeConn{}
	target := &fakeConn{}
	ownerID := uuid.NewString()
	targetID := uuid.NewString()

	room, err := hub.Ledger().EnsureRoom(ctx, uuid.NewString(), "Lobby", "")
	require.NoError(t, err)
	hub.Dispatcher().Dispatch(owner, Event{Type: EventJoin, UserID: ownerID, RoomID: room.ID, Name: "alice"})
	hub.Dispatcher().Dispatch(target, Event{Type: EventJoin, UserID: targetID, RoomID: room.ID, Name: "bob"})
	target.reset()

	hub.Dispatcher().Dispatch(owner, Event{Type: EventKick, UserID: ownerID, RoomID: room.ID, TargetID: targetID})

	// The kicked user sees: kick message into the room, direct kicked
	// notice, then the leave broadcast.
	assert.Equal(t, []string{"message", "kicked", "user_left"}, target.typeTags())
}

func TestKickByNonOwnerLeavesStateUntouched(t *testing.T) {
	hub, stores := newTestHub(t)
	ctx := context.Background()
	owner := &fakeConn{}
	member := &fakeConn{}
	ownerID := uuid.NewString()
	memberID := uuid.NewString()

	room, err := hub.Ledger().EnsureRoom(ctx, uuid.NewString(), "Lobby", "")
	require.NoError(t, err)
	hub.Dispatcher().Dispatch(owner, Event{Type: EventJoin, UserID: ownerID, RoomID: room.ID, Name: "alice"})
	hub.Dispatcher().Dispatch(member, Event{Type: EventJoin, UserID: memberID, RoomID: room.ID, Name: "bob"})
	owner.reset()

	hub.Dispatcher().Dispatch(member, Event{Type: EventKick, UserID: memberID, RoomID: room.ID, TargetID: ownerID})

	assert.Empty(t, owner.sent(), "owner must not receive anything from a rejected kick")

	got, err := stores.Rooms.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ownerID, memberID}, got.Members)
}

func TestStatusUnknownTokenDefaultsToOnline(t *testing.T) {
	hub, stores := newTestHub(t)
	ctx := context.Background()
	connA := &fakeConn{}
	connB := &fakeConn{}
	userA := uuid.NewString()
	userB := uuid.NewString()

	room, err := hub.Ledger().EnsureRoom(ctx, uuid.NewString(), "Lobby", "")
	require.NoError(t, err)
	hub.Dispatcher().Dispatch(connA, Event{Type: EventJoin, UserID: userA, RoomID: room.ID, Name: "alice"})
	hub.Dispatcher().Dispatch(connB, Event{Type: EventJoin, UserID: userB, RoomID: room.ID, Name: "bob"})
	connB.reset()

	hub.Dispatcher().Dispatch(connA, Event{Type: EventStatus, UserID: userA, Status: "daydreaming", StatusMessage: "bbl"})

	notice, ok := lastNotice(t, connB).(StatusNotice)
	require.True(t, ok)
	assert.Equal(t, models.StatusOnline, notice.Status)

	user, err := stores.Users.GetByID(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOnline), user.State)
	assert.Equal(t, "bbl", user.StatusMessage)
}

func TestNickOutsideRoomIsQuiet(t *testing.T) {
	hub, stores := newTestHub(t)
	ctx := context.Background()
	conn := &fakeConn{}
	userID := uuid.NewString()

	hub.Dispatcher().Dispatch(conn, Event{Type: EventRegister, UserID: userID, Name: "alice"})
	conn.reset()

	hub.Dispatcher().Dispatch(conn, Event{Type: EventNick, UserID: userID, Name: "alicia"})

	assert.Empty(t, conn.sent(), "rename without a current room broadcasts nothing")

	user, err := stores.Users.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", user.Username)
}

func TestHistoryOrderedWithCurrentNames(t *testing.T) {
	hub, _ := newTestHub(t)
	ctx := context.Background()
	conn := &fakeConn{}
	userID := uuid.NewString()

	room, err := hub.Ledger().EnsureRoom(ctx, uuid.NewString(), "Lobby", "")
	require.NoError(t, err)
	hub.Dispatcher().Dispatch(conn, Event{Type: EventJoin, UserID: userID, RoomID: room.ID, Name: "alice"})

	hub.Dispatcher().Dispatch(conn, Event{Type: EventMessage, UserID: userID, RoomID: room.ID, Content: "one"})
	hub.Dispatcher().Dispatch(conn, Event{Type: EventMessage, UserID: userID, RoomID: room.ID, Content: "two"})
	hub.Dispatcher().Dispatch(conn, Event{Type: EventNick, UserID: userID, Name: "alicia"})
	conn.reset()

	hub.Dispatcher().Dispatch(conn, Event{Type: EventHistory})

	history, ok := lastNotice(t, conn).(HistoryNotice)
	require.True(t, ok)
	require.Len(t, history.Messages, 3) // system joined + two chat messages

	for i := 1; i < len(history.Messages); i++ {
		assert.False(t, history.Messages[i].SentTime.Before(history.Messages[i-1].SentTime),
			"history must be in non-decreasing sent-time order")
	}
	last := history.Messages[len(history.Messages)-1]
	assert.Equal(t, "two", last.Content)
	assert.Equal(t, "alicia", last.UserName, "history annotates the author's current name")
}

func TestHistoryRequiresCurrentRoom(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := &fakeConn{}
	userID := uuid.NewString()

	hub.Dispatcher().Dispatch(conn, Event{Type: EventRegister, UserID: userID})
	conn.reset()

	hub.Dispatcher().Dispatch(conn, Event{Type: EventHistory})

	_, ok := lastNotice(t, conn).(ErrorNotice)
	assert.True(t, ok)
}

func TestQueryRoutedToLiveReceiver(t *testing.T) {
	hub, stores := newTestHub(t)
	sender := &fakeConn{}
	receiver := &fakeConn{}
	senderID := uuid.NewString()
	receiverID := uuid.NewString()

	hub.Dispatcher().Dispatch(sender, Event{Type: EventRegister, UserID: senderID, Name: "alice"})
	hub.Dispatcher().Dispatch(receiver, Event{Type: EventRegister, UserID: receiverID, Name: "bob"})
	receiver.reset()

	roomID := uuid.NewString()
	hub.Dispatcher().Dispatch(sender, Event{Type: EventQuery, UserID: senderID, TargetID: receiverID, RoomID: roomID})

	notice, ok := lastNotice(t, receiver).(QueryNotice)
	require.True(t, ok)
	assert.Equal(t, senderID, notice.SenderID)
	assert.Equal(t, roomID, notice.RoomID)

	pending, err := stores.Invites.PendingForReceiver(context.Background(), receiverID)
	require.NoError(t, err)
	assert.Empty(t, pending, "delivered invites do not linger")
}

func TestQueryToOfflineReceiverDeliveredOnRegister(t *testing.T) {
	hub, _ := newTestHub(t)
	sender := &fakeConn{}
	senderID := uuid.NewString()
	receiverID := uuid.NewString()

	hub.Dispatcher().Dispatch(sender, Event{Type: EventRegister, UserID: senderID, Name: "alice"})
	// Provision the receiver without binding a connection.
	_, err := hub.Ledger().EnsureUser(context.Background(), receiverID, "bob")
	require.NoError(t, err)
	sender.reset()

	hub.Dispatcher().Dispatch(sender, Event{Type: EventQuery, UserID: senderID, TargetID: receiverID, RoomID: uuid.NewString()})
	assert.Empty(t, sender.sent(), "offline receiver drops the ping silently")

	// The pending invite is flushed when the receiver registers.
	receiver := &fakeConn{}
	hub.Dispatcher().Dispatch(receiver, Event{Type: EventRegister, UserID: receiverID})
	assert.Contains(t, receiver.typeTags(), "query")
}

func TestQueryFromBlockedSenderIsDiscarded(t *testing.T) {
	hub, stores := newTestHub(t)
	ctx := context.Background()
	sender := &fakeConn{}
	receiver := &fakeConn{}
	senderID := uuid.NewString()
	receiverID := uuid.NewString()

	hub.Dispatcher().Dispatch(sender, Event{Type: EventRegister, UserID: senderID, Name: "alice"})
	hub.Dispatcher().Dispatch(receiver, Event{Type: EventRegister, UserID: receiverID, Name: "bob"})

	blocker, err := stores.Users.GetByID(ctx, receiverID)
	require.NoError(t, err)
	blocker.BlockedUsers = []string{senderID}
	require.NoError(t, stores.Users.Save(ctx, blocker))
	receiver.reset()

	hub.Dispatcher().Dispatch(sender, Event{Type: EventQuery, UserID: senderID, TargetID: receiverID, RoomID: uuid.NewString()})

	assert.NotContains(t, receiver.typeTags(), "query")

	pending, err := stores.Invites.PendingForReceiver(ctx, receiverID)
	require.NoError(t, err)
	assert.Empty(t, pending, "a blocked sender's ping must not be persisted for later")
}

func TestBlockedSenderInviteNotFlushedOnRegister(t *testing.T) {
	hub, stores := newTestHub(t)
	ctx := context.Background()
	sender := &fakeConn{}
	senderID := uuid.NewString()
	receiverID := uuid.NewString()

	hub.Dispatcher().Dispatch(sender, Event{Type: EventRegister, UserID: senderID, Name: "alice"})
	_, err := hub.Ledger().EnsureUser(ctx, receiverID, "bob")
	require.NoError(t, err)

	// The ping lands while the receiver is offline and not yet blocking.
	hub.Dispatcher().Dispatch(sender, Event{Type: EventQuery, UserID: senderID, TargetID: receiverID, RoomID: uuid.NewString()})
	pending, err := stores.Invites.PendingForReceiver(ctx, receiverID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// The receiver blocks the sender before reconnecting; the stored invite
	// must be discarded on the next register, not delivered late.
	blocker, err := stores.Users.GetByID(ctx, receiverID)
	require.NoError(t, err)
	blocker.BlockedUsers = []string{senderID}
	require.NoError(t, stores.Users.Save(ctx, blocker))

	receiver := &fakeConn{}
	hub.Dispatcher().Dispatch(receiver, Event{Type: EventRegister, UserID: receiverID})

	assert.NotContains(t, receiver.typeTags(), "query")

	pending, err = stores.Invites.PendingForReceiver(ctx, receiverID)
	require.NoError(t, err)
	assert.Empty(t, pending, "discarded invites must not survive the flush")
}

func TestPermanentLeaveValidatesBeforeBroadcast(t *testing.T) {
	hub, _ := newTestHub(t)
	ctx := context.Background()
	member := &fakeConn{}
	memberID := uuid.NewString()

	room, err := hub.Ledger().EnsureRoom(ctx, uuid.NewString(), "Lobby", "")
	require.NoError(t, err)
	hub.Dispatcher().Dispatch(member, Event{Type: EventJoin, UserID: memberID, RoomID: room.ID, Name: "alice"})
	member.reset()

	caller := &fakeConn{}
	hub.Dispatcher().Dispatch(caller, Event{Type: EventLeave, UserID: uuid.NewString(), RoomID: room.ID, Permanent: true})

	_, ok := lastNotice(t, caller).(ErrorNotice)
	assert.True(t, ok)
	assert.Empty(t, member.sent(), "a rejected leave must not broadcast to subscribers")
}

func TestUnknownEventType(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := &fakeConn{}

	hub.Dispatcher().Dispatch(conn, Event{Type: "teleport"})

	_, ok := lastNotice(t, conn).(ErrorNotice)
	assert.True(t, ok)
}

// TestLobbyLifecycle walks the whole room lifecycle end to end: create,
// join, chat, kick, permanent leave, destruction.
func TestLobbyLifecycle(t *testing.T) {
	hub, stores := newTestHub(t)
	ctx := context.Background()
	connA := &fakeConn{}
	connB := &fakeConn{}
	userA := uuid.NewString()
	userB := uuid.NewString()

	// A creates "Lobby"; the invite code is derived and 8 characters long.
	room, err := hub.Ledger().EnsureRoom(ctx, uuid.NewString(), "Lobby", "")
	require.NoError(t, err)
	require.Len(t, room.InviteCode, 8)

	// A joins.
	hub.Dispatcher().Dispatch(connA, Event{Type: EventJoin, UserID: userA, RoomID: room.ID, Name: "A"})

	// B resolves the room by invite code and joins; both sides see the join.
	resolved, err := stores.Rooms.GetByInviteCode(ctx, room.InviteCode)
	require.NoError(t, err)
	require.Equal(t, room.ID, resolved.ID)

	connA.reset()
	hub.Dispatcher().Dispatch(connB, Event{Type: EventJoin, UserID: userB, RoomID: resolved.ID, Name: "B"})
	assert.Contains(t, connA.typeTags(), "user_joined")
	assert.Contains(t, connB.typeTags(), "user_joined")

	// A says hi; B receives it attributed to A.
	connB.reset()
	hub.Dispatcher().Dispatch(connA, Event{Type: EventMessage, UserID: userA, RoomID: room.ID, Content: "hi"})
	msg, ok := lastNotice(t, connB).(MessageNotice)
	require.True(t, ok)
	assert.Equal(t, "A", msg.UserName)
	assert.Equal(t, "hi", msg.Content)

	// A kicks B.
	connB.reset()
	hub.Dispatcher().Dispatch(connA, Event{Type: EventKick, UserID: userA, RoomID: room.ID, TargetID: userB})
	tags := connB.typeTags()
	assert.Contains(t, tags, "kicked")
	assert.Contains(t, tags, "user_left")

	// A permanently leaves; the room and its messages are destroyed.
	hub.Dispatcher().Dispatch(connA, Event{Type: EventLeave, UserID: userA, RoomID: room.ID, Permanent: true})

	_, err = stores.Rooms.GetByID(ctx, room.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	messages, err := stores.Messages.ByRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
