package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"chatapp_backend/models"
	"chatapp_backend/store"
)

// Dispatcher routes inbound client events to the presence registry and the
// membership ledger, mutates the record store, and fans notifications out to
// the affected connections. All failure handling is fail-soft: a violated
// precondition produces an error notice on the calling connection and no
// state change; an unexpected fault is caught, logged and converted to a
// generic notice so neither the process nor the connection dies.
type Dispatcher struct {
	stores   *store.Stores
	ledger   *Ledger
	presence *Presence
	groups   *Groups
}

func NewDispatcher(stores *store.Stores, ledger *Ledger, presence *Presence, groups *Groups) *Dispatcher {
	return &Dispatcher{
		stores:   stores,
		ledger:   ledger,
		presence: presence,
		groups:   groups,
	}
}

// Dispatch processes one inbound event for one connection.
func (d *Dispatcher) Dispatch(conn Conn, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatch panic on %q event: %v", evt.Type, r)
			conn.Send(errorNotice("internal server error"))
		}
	}()

	ctx := context.Background()
	var err error

	switch evt.Type {
	case EventRegister:
		err = d.handleRegister(ctx, conn, evt)
	case EventJoin:
		err = d.handleJoin(ctx, conn, evt)
	case EventLeave:
		err = d.handleLeave(ctx, conn, evt)
	case EventMessage:
		err = d.handleMessage(ctx, conn, evt)
	case EventKick:
		err = d.handleKick(ctx, conn, evt)
	case EventNick:
		err = d.handleNick(ctx, evt)
	case EventStatus:
		err = d.handleStatus(ctx, evt)
	case EventListRooms:
		err = d.handleListRooms(ctx, conn)
	case EventHistory:
		err = d.handleHistory(ctx, conn)
	case EventRoomInfo:
		err = d.handleRoomInfo(ctx, conn)
	case EventQuery:
		err = d.handleQuery(ctx, evt)
	default:
		err = fmt.Errorf("%w: unknown event type %q", ErrInvalidOperation, evt.Type)
	}

	if err != nil {
		d.reportError(conn, evt, err)
	}
}

// reportError maps a domain error to an error notice for the caller only.
func (d *Dispatcher) reportError(conn Conn, evt Event, err error) {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrInvalidOperation),
		errors.Is(err, ErrConflict):
		conn.Send(errorNotice(err.Error()))
	case errors.Is(err, ErrTransient):
		log.Printf("transient store failure on %q event: %v", evt.Type, err)
		conn.Send(errorNotice("temporary storage failure, try again"))
	default:
		log.Printf("unexpected failure on %q event: %v", evt.Type, err)
		conn.Send(errorNotice("internal server error"))
	}
}

// handleRegister binds the connection to a user, auto-provisioning the user
// record if needed. Rebinding after a reconnect silently supersedes the old
// connection for lookups.
func (d *Dispatcher) handleRegister(ctx context.Context, conn Conn, evt Event) error {
	if evt.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidOperation)
	}
	unlock := d.ledger.LockUser(evt.UserID)
	defer unlock()

	user, err := d.ledger.EnsureUser(ctx, evt.UserID, evt.Name)
	if err != nil {
		return err
	}
	d.presence.Bind(conn, user.ID)

	user.LastSeenAt = time.Now().UTC()
	if err := d.stores.Users.Save(ctx, user); err != nil {
		return err
	}

	conn.Send(RegisteredNotice{Type: "registered", UserID: user.ID, Name: user.Username})
	d.deliverPendingInvites(ctx, conn, user.ID)
	return nil
}

// deliverPendingInvites flushes invites that were issued while the receiver
// was offline. Invites whose sender the receiver has since blocked are
// discarded, never delivered. Failures are logged, never fatal.
func (d *Dispatcher) deliverPendingInvites(ctx context.Context, conn Conn, userID string) {
	receiver, err := d.stores.Users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("could not load receiver %s for invite flush: %v", userID, err)
		return
	}
	invites, err := d.stores.Invites.PendingForReceiver(ctx, userID)
	if err != nil {
		log.Printf("could not load pending invites for %s: %v", userID, err)
		return
	}
	for _, inv := range invites {
		if !receiver.HasBlocked(inv.SenderID) {
			conn.Send(QueryNotice{Type: "query", SenderID: inv.SenderID, ReceiverID: inv.ReceiverID, RoomID: inv.RoomID})
		}
		if err := d.stores.Invites.Delete(ctx, inv.ID); err != nil {
			log.Printf("could not remove invite %s: %v", inv.ID, err)
		}
	}
}

func (d *Dispatcher) handleJoin(ctx context.Context, conn Conn, evt Event) error {
	unlock := d.ledger.LockRoom(evt.RoomID)
	defer unlock()

	room, user, firstJoin, err := d.ledger.Join(ctx, evt.RoomID, evt.UserID, evt.Name)
	if err != nil {
		return err
	}

	d.presence.Bind(conn, user.ID)
	d.groups.Subscribe(conn, room.ID)

	d.groups.Broadcast(room.ID, JoinNotice{
		Type:       "user_joined",
		RoomID:     room.ID,
		UserID:     user.ID,
		UserName:   user.Username,
		RoomSecret: room.Password,
	})

	// The joined notice goes into history exactly once per user; repeat
	// joins of the same room stay silent.
	if firstJoin {
		msg, err := d.appendSystemMessage(ctx, room.ID, user.ID, user.Username+" joined the room")
		if err != nil {
			return err
		}
		d.groups.Broadcast(room.ID, d.noticeFor(msg, user.Username))
	}
	return nil
}

func (d *Dispatcher) handleLeave(ctx context.Context, conn Conn, evt Event) error {
	unlock := d.ledger.LockRoom(evt.RoomID)
	defer unlock()

	if !evt.Permanent {
		if err := d.ledger.LeaveTemporary(ctx, evt.RoomID, evt.UserID); err != nil {
			return err
		}
		d.groups.Unsubscribe(conn, evt.RoomID)
		d.groups.Broadcast(evt.RoomID, LeaveNotice{Type: "user_left", RoomID: evt.RoomID, UserID: evt.UserID})
		return nil
	}

	// Permanent leave: validate the room and user rows first so a rejected
	// leave emits nothing, then notify subscribers before the room and its
	// messages can be deleted.
	if _, err := d.stores.Rooms.GetByID(ctx, evt.RoomID); err != nil {
		return err
	}
	if _, err := d.stores.Users.GetByID(ctx, evt.UserID); err != nil {
		return err
	}

	d.groups.Unsubscribe(conn, evt.RoomID)
	d.groups.Broadcast(evt.RoomID, LeaveNotice{Type: "user_left", RoomID: evt.RoomID, UserID: evt.UserID})

	destroyed, err := d.ledger.LeavePermanent(ctx, evt.RoomID, evt.UserID)
	if err != nil {
		return err
	}
	if destroyed {
		d.groups.Broadcast(evt.RoomID, RoomDeletedNotice{Type: "room_deleted", RoomID: evt.RoomID})
	}
	return nil
}

func (d *Dispatcher) handleMessage(ctx context.Context, conn Conn, evt Event) error {
	unlock := d.ledger.LockRoom(evt.RoomID)
	defer unlock()

	room, err := d.stores.Rooms.GetByID(ctx, evt.RoomID)
	if err != nil {
		return err
	}
	user, err := d.ledger.EnsureUser(ctx, evt.UserID, "")
	if err != nil {
		return err
	}

	sentTime, err := d.orderedTime(ctx, room.ID, evt.SentTime)
	if err != nil {
		return err
	}
	msg := &models.Message{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		UserID:   user.ID,
		Content:  evt.Content,
		IsImage:  evt.IsImage,
		SentTime: sentTime,
	}
	if err := d.stores.Messages.Append(ctx, msg); err != nil {
		return err
	}

	// Author name is resolved at send time, not a historical snapshot.
	d.groups.Broadcast(room.ID, d.noticeFor(msg, user.Username))
	return nil
}

func (d *Dispatcher) handleKick(ctx context.Context, conn Conn, evt Event) error {
	unlock := d.ledger.LockRoom(evt.RoomID)
	defer unlock()

	target, err := d.stores.Users.GetByID(ctx, evt.TargetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: target user not found", ErrNotFound)
		}
		return err
	}

	destroyed, err := d.ledger.Kick(ctx, evt.RoomID, evt.UserID, evt.TargetID)
	if err != nil {
		return err
	}

	// Notification order: kick message into the room, direct notice to the
	// kicked user, leave notice, then room-deleted if the room emptied.
	if !destroyed {
		msg, err := d.appendSystemMessage(ctx, evt.RoomID, evt.UserID, target.Username+" was kicked from the room")
		if err != nil {
			return err
		}
		d.groups.Broadcast(evt.RoomID, d.noticeFor(msg, target.Username))
	}

	var targetConn Conn
	if c, ok := d.presence.ConnFor(evt.TargetID); ok {
		targetConn = c
		c.Send(KickedNotice{Type: "kicked", RoomID: evt.RoomID})
	}

	d.groups.Broadcast(evt.RoomID, LeaveNotice{Type: "user_left", RoomID: evt.RoomID, UserID: evt.TargetID})
	if targetConn != nil {
		d.groups.Unsubscribe(targetConn, evt.RoomID)
	}

	if destroyed {
		d.groups.Broadcast(evt.RoomID, RoomDeletedNotice{Type: "room_deleted", RoomID: evt.RoomID})
	}
	return nil
}

func (d *Dispatcher) handleNick(ctx context.Context, evt Event) error {
	unlock := d.ledger.LockUser(evt.UserID)
	defer unlock()

	user, err := d.stores.Users.GetByID(ctx, evt.UserID)
	if err != nil {
		return err
	}
	user.Username = evt.Name
	if err := d.stores.Users.Save(ctx, user); err != nil {
		return err
	}

	// No-op fan-out when the user is not currently in a room.
	if user.CurrentRoomID != nil {
		d.groups.Broadcast(*user.CurrentRoomID, NickNotice{Type: "nick_changed", UserID: user.ID, Name: user.Username})
	}
	return nil
}

func (d *Dispatcher) handleStatus(ctx context.Context, evt Event) error {
	unlock := d.ledger.LockUser(evt.UserID)
	defer unlock()

	user, err := d.stores.Users.GetByID(ctx, evt.UserID)
	if err != nil {
		return err
	}
	status := models.ParseUserStatus(evt.Status)
	user.State = string(status)
	user.StatusMessage = evt.StatusMessage
	if err := d.stores.Users.Save(ctx, user); err != nil {
		return err
	}

	if user.CurrentRoomID != nil {
		d.groups.Broadcast(*user.CurrentRoomID, StatusNotice{Type: "status_changed", UserID: user.ID, Status: status})
	}
	return nil
}

func (d *Dispatcher) handleListRooms(ctx context.Context, conn Conn) error {
	rooms, err := d.stores.Rooms.All(ctx)
	if err != nil {
		return err
	}
	summaries := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, RoomSummary{
			ID:          r.ID,
			Name:        r.Name,
			InviteCode:  r.InviteCode,
			HasPassword: r.HasPassword(),
			MemberCount: len(r.Members),
		})
	}
	conn.Send(RoomListNotice{Type: "room_list", Rooms: summaries})
	return nil
}

func (d *Dispatcher) handleHistory(ctx context.Context, conn Conn) error {
	user, err := d.callerWithRoom(ctx, conn)
	if err != nil {
		return err
	}
	roomID := *user.CurrentRoomID

	messages, err := d.stores.Messages.ByRoom(ctx, roomID)
	if err != nil {
		return err
	}

	// Each entry carries the author's current display name, looked up once
	// per author.
	names := map[string]string{user.ID: user.Username}
	notices := make([]MessageNotice, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		name, ok := names[msg.UserID]
		if !ok {
			if author, err := d.stores.Users.GetByID(ctx, msg.UserID); err == nil {
				name = author.Username
			} else {
				name = defaultUserName(msg.UserID)
			}
			names[msg.UserID] = name
		}
		notices = append(notices, d.noticeFor(msg, name))
	}
	conn.Send(HistoryNotice{Type: "history", RoomID: roomID, Messages: notices})
	return nil
}

func (d *Dispatcher) handleRoomInfo(ctx context.Context, conn Conn) error {
	user, err := d.callerWithRoom(ctx, conn)
	if err != nil {
		return err
	}
	room, err := d.stores.Rooms.GetByID(ctx, *user.CurrentRoomID)
	if err != nil {
		return err
	}

	members := make([]MemberInfo, 0, len(room.Members))
	for _, id := range room.Members {
		member, err := d.stores.Users.GetByID(ctx, id)
		if err != nil {
			continue
		}
		members = append(members, MemberInfo{
			UserID:        member.ID,
			Name:          member.Username,
			StatusMessage: member.StatusMessage,
			State:         member.State,
			Online:        d.presence.Online(member.ID),
		})
	}
	conn.Send(RoomInfoNotice{Type: "room_info", RoomID: room.ID, Name: room.Name, Members: members})
	return nil
}

// handleQuery routes a direct invite ping to the receiver's live connection.
// Pings from a sender the receiver has blocked are discarded outright. For an
// offline receiver the invite is persisted and flushed on their next register;
// delivery removes the row.
func (d *Dispatcher) handleQuery(ctx context.Context, evt Event) error {
	sender, err := d.stores.Users.GetByID(ctx, evt.UserID)
	if err != nil {
		return err
	}
	receiver, err := d.stores.Users.GetByID(ctx, evt.TargetID)
	if err != nil {
		return err
	}
	if receiver.HasBlocked(sender.ID) {
		return nil
	}

	invite := &models.Invite{
		ID:         uuid.NewString(),
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		RoomID:     evt.RoomID,
		SentTime:   time.Now().UTC(),
	}
	if err := d.stores.Invites.Add(ctx, invite); err != nil {
		return err
	}

	if c, ok := d.presence.ConnFor(receiver.ID); ok {
		c.Send(QueryNotice{Type: "query", SenderID: sender.ID, ReceiverID: receiver.ID, RoomID: evt.RoomID})
		if err := d.stores.Invites.Delete(ctx, invite.ID); err != nil {
			log.Printf("could not remove delivered invite %s: %v", invite.ID, err)
		}
	}
	// Silently dropped when the receiver is offline.
	return nil
}

// callerWithRoom resolves the caller through the presence registry and
// requires a current room.
func (d *Dispatcher) callerWithRoom(ctx context.Context, conn Conn) (*models.User, error) {
	userID, ok := d.presence.UserFor(conn)
	if !ok {
		return nil, fmt.Errorf("%w: connection is not registered", ErrInvalidOperation)
	}
	user, err := d.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CurrentRoomID == nil {
		return nil, fmt.Errorf("%w: user is not in a room", ErrInvalidOperation)
	}
	return user, nil
}

// orderedTime picks the persisted timestamp for a message: the proposed time
// (or now) bumped to strictly after the room's latest message, so that
// sort-by-time replay always places newer messages last.
func (d *Dispatcher) orderedTime(ctx context.Context, roomID string, proposed time.Time) (time.Time, error) {
	latest, err := d.stores.Messages.LatestSentTime(ctx, roomID)
	if err != nil {
		return time.Time{}, err
	}
	ts := proposed
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if !latest.IsZero() && !ts.After(latest) {
		ts = latest.Add(time.Millisecond)
	}
	return ts, nil
}

func (d *Dispatcher) appendSystemMessage(ctx context.Context, roomID, userID, content string) (*models.Message, error) {
	sentTime, err := d.orderedTime(ctx, roomID, time.Time{})
	if err != nil {
		return nil, err
	}
	msg := &models.Message{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		UserID:   userID,
		Content:  content,
		System:   true,
		SentTime: sentTime,
	}
	if err := d.stores.Messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (d *Dispatcher) noticeFor(msg *models.Message, userName string) MessageNotice {
	return MessageNotice{
		Type:     "message",
		RoomID:   msg.RoomID,
		UserID:   msg.UserID,
		UserName: userName,
		Content:  msg.Content,
		IsImage:  msg.IsImage,
		System:   msg.System,
		SentTime: msg.SentTime,
	}
}
