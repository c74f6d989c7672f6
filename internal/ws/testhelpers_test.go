package ws

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatapp_backend/models"
	"chatapp_backend/store"
)

// newTestStores opens an isolated in-memory SQLite database per test.
func newTestStores(t *testing.T) *store.Stores {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Room{}, &models.Message{}, &models.Invite{}); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return store.New(db)
}

// fakeConn records every payload sent to it.
type fakeConn struct {
	mu      sync.Mutex
	notices []interface{}
}

func (f *fakeConn) Send(v interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, v)
}

func (f *fakeConn) sent() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, len(f.notices))
	copy(out, f.notices)
	return out
}

// typeTags lists the type tag of each recorded notice in delivery order.
func (f *fakeConn) typeTags() []string {
	var tags []string
	for _, n := range f.sent() {
		switch v := n.(type) {
		case ErrorNotice:
			tags = append(tags, v.Type)
		case RegisteredNotice:
			tags = append(tags, v.Type)
		case MessageNotice:
			tags = append(tags, v.Type)
		case JoinNotice:
			tags = append(tags, v.Type)
		case LeaveNotice:
			tags = append(tags, v.Type)
		case RoomDeletedNotice:
			tags = append(tags, v.Type)
		case KickedNotice:
			tags = append(tags, v.Type)
		case NickNotice:
			tags = append(tags, v.Type)
		case StatusNotice:
			tags = append(tags, v.Type)
		case RoomListNotice:
			tags = append(tags, v.Type)
		case HistoryNotice:
			tags = append(tags, v.Type)
		case RoomInfoNotice:
			tags = append(tags, v.Type)
		case QueryNotice:
			tags = append(tags, v.Type)
		default:
			tags = append(tags, fmt.Sprintf("%T", n))
		}
	}
	return tags
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = nil
}
