package realtime

import (
	"context"
	defError "errors"
	"sort"
	"sync"

	"todoshi/internal/domain"
	"todoshi/internal/room"

	"github.com/sirupsen/logrus"
)

var (
	ErrUserNotFound  = defError.New("user not found")
	ErrSessionExists = defError.New("session already exists")
	ErrHubClosed     = defError.New("hub closed")
)

// Conn is one realtime connection as the hub sees it
type Conn interface {
	ID() string
	// UserID is the verified subject the connection authenticated as
	UserID() string
	// Emit queues an event for this connection only. It must not block and
	// reports false when the event was dropped.
	Emit(event string, payload any) bool
	Close()
}

// ProfileResolver turns a user id into the profile shown in presence lists
type ProfileResolver interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
}

// PresenceEntry is one connected socket in a room
type PresenceEntry struct {
	UserID       string
	Username     string
	Avatar       string
	ConnectionID string
}

// OnlineUser is the public part of a presence entry
type OnlineUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// PresenceSnapshot is broadcast as online-users-update
type PresenceSnapshot struct {
	OnlineUsers []OnlineUser `json:"onlineUsers"`
	TotalCount  int          `json:"totalCount"`
}

// roomState keeps entries in join order next to the connections that get
// the room's broadcasts
type roomState struct {
	entries     []PresenceEntry
	subscribers map[string]Conn
}

func (r *roomState) snapshot() PresenceSnapshot {
	users := make([]OnlineUser, 0, len(r.entries))
	for _, e := range r.entries {
		users = append(users, OnlineUser{UserID: e.UserID, Username: e.Username, Avatar: e.Avatar})
	}
	return PresenceSnapshot{OnlineUsers: users, TotalCount: len(users)}
}

func (r *roomState) recipients() []Conn {
	conns := make([]Conn, 0, len(r.subscribers))
	for _, c := range r.subscribers {
		conns = append(conns, c)
	}
	return conns
}

// Hub is the process local room registry. Presence is never persisted.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]*roomState
	profiles ProfileResolver
	closed   bool
	log      *logrus.Entry
}

var _ room.Broadcaster = (*Hub)(nil)

func NewHub(profiles ProfileResolver) *Hub {
	return &Hub{
		rooms:    make(map[string]*roomState),
		profiles: profiles,
		log:      logrus.WithField("component", "hub"),
	}
}

// Join admits conn into roomKey as userID. The profile lookup happens before
// the lock; the duplicate check and the append happen under it, so two joins
// for the same user can't both succeed.
func (h *Hub) Join(ctx context.Context, conn Conn, roomKey, userID string) error {
	profile, err := h.profiles.GetProfile(ctx, userID)
	if err != nil || profile == nil {
		h.log.WithError(err).WithField("user_id", userID).Debug("join: profile lookup failed")
		conn.Emit(room.EventRoomConnectionError, joinError(ErrUserNotFound))
		return ErrUserNotFound
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Emit(room.EventRoomConnectionError, joinError(ErrHubClosed))
		return ErrHubClosed
	}
	state, ok := h.rooms[roomKey]
	if !ok {
		state = &roomState{subscribers: make(map[string]Conn)}
		h.rooms[roomKey] = state
	}
	for _, e := range state.entries {
		if e.UserID == userID {
			h.mu.Unlock()
			conn.Emit(room.EventRoomConnectionError, joinError(ErrSessionExists))
			return ErrSessionExists
		}
	}
	state.entries = append(state.entries, PresenceEntry{
		UserID:       userID,
		Username:     profile.Username,
		Avatar:       profile.Avatar,
		ConnectionID: conn.ID(),
	})
	state.subscribers[conn.ID()] = conn
	snapshot := state.snapshot()
	recipients := state.recipients()
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"room":    roomKey,
		"user_id": userID,
		"online":  snapshot.TotalCount,
	}).Info("joined room")

	h.fanOut(roomKey, recipients, room.EventOnlineUsersUpdate, snapshot)
	conn.Emit(room.EventRoomConnectionSuccess, map[string]string{"roomID": roomKey})
	return nil
}

func joinError(err error) map[string]string {
	msg := "Failed to join room"
	if defError.Is(err, ErrSessionExists) {
		msg = "You are already connected to this room"
	}
	return map[string]string{"message": msg, "error": err.Error()}
}

// Leave drops every presence entry of conn. Rooms left empty are removed,
// the others get a fresh snapshot. Unknown connections are ignored.
func (h *Hub) Leave(conn Conn) {
	type update struct {
		key        string
		snapshot   PresenceSnapshot
		recipients []Conn
	}
	var updates []update

	h.mu.Lock()
	for key, state := range h.rooms {
		_, subscribed := state.subscribers[conn.ID()]
		kept := state.entries[:0]
		for _, e := range state.entries {
			if e.ConnectionID != conn.ID() {
				kept = append(kept, e)
			}
		}
		removed := len(kept) != len(state.entries)
		state.entries = kept
		delete(state.subscribers, conn.ID())

		if len(state.entries) == 0 {
			delete(h.rooms, key)
			continue
		}
		if removed || subscribed {
			updates = append(updates, update{key: key, snapshot: state.snapshot(), recipients: state.recipients()})
		}
	}
	h.mu.Unlock()

	for _, u := range updates {
		h.fanOut(u.key, u.recipients, room.EventOnlineUsersUpdate, u.snapshot)
	}
}

// Broadcast sends event to every connection subscribed to roomKey
func (h *Hub) Broadcast(roomKey, event string, payload any) {
	h.mu.Lock()
	state, ok := h.rooms[roomKey]
	var recipients []Conn
	if ok {
		recipients = state.recipients()
	}
	h.mu.Unlock()

	if len(recipients) == 0 {
		h.log.WithFields(logrus.Fields{"room": roomKey, "event": event}).Debug("broadcast to empty room")
		return
	}
	h.fanOut(roomKey, recipients, event, payload)
}

func (h *Hub) fanOut(roomKey string, recipients []Conn, event string, payload any) {
	for _, c := range recipients {
		if !c.Emit(event, payload) {
			h.log.WithFields(logrus.Fields{
				"room":          roomKey,
				"event":         event,
				"connection_id": c.ID(),
			}).Warn("send queue full, event dropped")
		}
	}
}

// Presence returns the room's entries in join order
func (h *Hub) Presence(roomKey string) []PresenceEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.rooms[roomKey]
	if !ok {
		return nil
	}
	return append([]PresenceEntry(nil), state.entries...)
}

// Rooms lists live room keys, sorted
func (h *Hub) Rooms() []string {
	h.mu.Lock()
	keys := make([]string, 0, len(h.rooms))
	for key := range h.rooms {
		keys = append(keys, key)
	}
	h.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// IsSubscribed reports whether conn receives roomKey's broadcasts
func (h *Hub) IsSubscribed(conn Conn, roomKey string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.rooms[roomKey]
	if !ok {
		return false
	}
	_, ok = state.subscribers[conn.ID()]
	return ok
}

// Close drops all rooms and closes every connection. Later joins fail.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conns := make(map[string]Conn)
	for _, state := range h.rooms {
		for id, c := range state.subscribers {
			conns[id] = c
		}
	}
	h.rooms = make(map[string]*roomState)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	h.log.WithField("connections", len(conns)).Info("hub closed")
}
