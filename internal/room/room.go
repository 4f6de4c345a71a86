// Package room holds the pieces of the realtime layer that REST services
// share with the socket handlers: the room key derivation, the event names
// and the broadcast primitive.
package room

import (
	"strings"

	"github.com/google/uuid"
)

// Server to room broadcasts
const (
	EventOnlineUsersUpdate        = "online-users-update"
	EventProjectDescriptionUpdate = "project-description-update"
	EventProjectLinksUpdate       = "project-links-update"
	EventProjectStatusToggled     = "project-status-toggled"
	EventNewProjectLog            = "new-project-log"
	EventNewTodo                  = "new-todo"
	EventTodoCompleted            = "todo-completed"
	EventTodoPending              = "todo-pending"
	EventTodoDeleted              = "todo-deleted"
	EventNewMessage               = "new-message"
	EventMessageDeleted           = "message-deleted"
	EventProjectDetailsUpdate     = "project-details-update"
	EventProjectSRSUpdate         = "project-srs-update"
	EventCollaboratorLeft         = "collaborator-left"
	EventCollaboratorJoined       = "collaborator-joined"
)

// Server to originating connection only
const (
	EventRoomConnectionSuccess = "room-connection-success"
	EventRoomConnectionError   = "room-connection-error"
	EventServerError           = "server-error"
)

// Key derives the room a project lives in: the first two characters of the
// trimmed title followed by the project id. REST and socket handlers both
// compute it and must agree.
func Key(title, projectID string) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes) + projectID
}

// ProjectID recovers the project id from a key built by Key. Project ids
// are canonical UUIDs, so it is the 36 byte tail.
func ProjectID(key string) (string, bool) {
	if len(key) < 36 {
		return "", false
	}
	tail := key[len(key)-36:]
	if _, err := uuid.Parse(tail); err != nil {
		return "", false
	}
	return tail, true
}

// Broadcaster fans an event out to every connection subscribed to a room.
// Delivery is best effort.
type Broadcaster interface {
	Broadcast(roomKey, event string, payload any)
}

// Discard is a Broadcaster that drops every event.
var Discard Broadcaster = discard{}

type discard struct{}

func (discard) Broadcast(string, string, any) {}
