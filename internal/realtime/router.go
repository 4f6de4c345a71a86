package realtime

import (
	"context"
	defError "errors"
	"fmt"
	"runtime/debug"

	"todoshi/internal/domain"
	"todoshi/internal/errors"
	"todoshi/internal/room"
	"todoshi/internal/todo"

	"github.com/sirupsen/logrus"
)

// ProjectUpdater is the socket facing part of project.Service
type ProjectUpdater interface {
	UpdateDescription(ctx context.Context, roomID, projectID, userID, description string) (*domain.Project, error)
	UpdateLinks(ctx context.Context, roomID, projectID, userID string, links []string) (*domain.Project, error)
	SetActiveStatus(ctx context.Context, roomID, projectID, userID string, active bool) (*domain.Project, error)
	AuthorizeRoom(ctx context.Context, roomID, projectID, userID string) (*domain.Project, error)
}

type LogAppender interface {
	Append(ctx context.Context, roomID, projectID, userID, description string) (*domain.Log, error)
}

type TodoService interface {
	Create(ctx context.Context, roomID, userID string, input todo.CreateInput) (*domain.TodoView, error)
	SetStatus(ctx context.Context, roomID, todoID, userID string, done bool) (*domain.TodoView, error)
	Delete(ctx context.Context, roomID, todoID, userID string) (*domain.TodoView, error)
}

// errNotInRoom rejects mutations aimed at a room the connection never joined
var errNotInRoom = errors.Forbidden("Join the room first", nil)

// Router applies inbound events: one store mutation through the owning
// service, then a broadcast to the event's room. Failures go back to the
// originating connection only.
type Router struct {
	hub      *Hub
	projects ProjectUpdater
	logs     LogAppender
	todos    TodoService
}

func NewRouter(hub *Hub, projects ProjectUpdater, logs LogAppender, todos TodoService) *Router {
	return &Router{hub: hub, projects: projects, logs: logs, todos: todos}
}

// Dispatch never panics and never closes the connection
func (r *Router) Dispatch(ctx context.Context, conn Conn, frame Frame) {
	log := logrus.WithFields(logrus.Fields{
		"component":     "router",
		"event":         frame.Event,
		"user_id":       conn.UserID(),
		"connection_id": conn.ID(),
	})
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Errorf("event handler panicked\n%s", debug.Stack())
			emitError(conn, errors.Internal(fmt.Errorf("panic: %v", rec)))
		}
	}()

	event, err := Decode(frame)
	if err != nil {
		log.WithError(err).Debug("rejected event")
		if frame.Event == EventJoinProjectRoom {
			emitJoinError(conn, err.Error())
			return
		}
		emitError(conn, err)
		return
	}

	if err := r.handle(ctx, conn, event); err != nil {
		if apiErr, ok := errors.As(err); !ok || apiErr.Status >= 500 {
			log.WithError(err).Error("event failed")
		} else {
			log.WithError(err).Info("event refused")
		}
		emitError(conn, err)
	}
}

func (r *Router) handle(ctx context.Context, conn Conn, event any) error {
	switch e := event.(type) {
	case *JoinProjectRoom:
		return r.join(ctx, conn, e)

	case *UpdateProjectDescription:
		if err := r.inRoom(conn, e.RoomID); err != nil {
			return err
		}
		project, err := r.projects.UpdateDescription(ctx, e.RoomID, e.ProjectID, conn.UserID(), e.Description)
		if err != nil {
			return err
		}
		r.hub.Broadcast(e.RoomID, room.EventProjectDescriptionUpdate, map[string]any{"description": project.Description})

	case *UpdateProjectLinks:
		if err := r.inRoom(conn, e.RoomID); err != nil {
			return err
		}
		project, err := r.projects.UpdateLinks(ctx, e.RoomID, e.ProjectID, conn.UserID(), e.Links)
		if err != nil {
			return err
		}
		r.hub.Broadcast(e.RoomID, room.EventProjectLinksUpdate, map[string]any{"links": []string(project.Links)})

	case *ToggleProjectStatus:
		if err := r.inRoom(conn, e.RoomID); err != nil {
			return err
		}
		project, err := r.projects.SetActiveStatus(ctx, e.RoomID, e.ProjectID, conn.UserID(), *e.ActiveStatus)
		if err != nil {
			return err
		}
		r.hub.Broadcast(e.RoomID, room.EventProjectStatusToggled, map[string]any{"activeStatus": project.ActiveStatus})

	case *AddProjectLog:
		if err := r.inRoom(conn, e.RoomID); err != nil {
			return err
		}
		entry, err := r.logs.Append(ctx, e.RoomID, e.ProjectID, conn.UserID(), e.Description)
		if err != nil {
			return err
		}
		r.hub.Broadcast(e.RoomID, room.EventNewProjectLog, entry)

	case *NewTodo:
		if err := r.inRoom(conn, e.RoomID); err != nil {
			return err
		}
		if e.CreatedBy != conn.UserID() {
			return errors.Forbidden("createdBy must be the connected user", nil)
		}
		view, err := r.todos.Create(ctx, e.RoomID, conn.UserID(), todo.CreateInput{
			Title:       e.Title,
			Description: e.Description,
			Status:      *e.Status,
			Priority:    e.Priority,
			ProjectID:   e.ProjectID,
			Date:        e.Date,
		})
		if err != nil {
			return err
		}
		r.hub.Broadcast(e.RoomID, room.EventNewTodo, view)

	case *MarkTodoCompleted:
		return r.setTodoStatus(ctx, conn, e.RoomID, e.TodoID, true)

	case *MarkTodoPending:
		return r.setTodoStatus(ctx, conn, e.RoomID, e.TodoID, false)

	case *DeleteTodo:
		if err := r.inRoom(conn, e.RoomID); err != nil {
			return err
		}
		view, err := r.todos.Delete(ctx, e.RoomID, e.TodoID, conn.UserID())
		if err != nil {
			return err
		}
		r.hub.Broadcast(e.RoomID, room.EventTodoDeleted, view)

	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, event)
	}
	return nil
}

// join admits members only. Every refusal goes out as room-connection-error.
func (r *Router) join(ctx context.Context, conn Conn, e *JoinProjectRoom) error {
	if e.UserID != conn.UserID() {
		emitJoinError(conn, "user mismatch")
		return nil
	}
	projectID := e.ProjectID
	if projectID == "" {
		id, ok := room.ProjectID(e.RoomID)
		if !ok {
			emitJoinError(conn, "unknown room")
			return nil
		}
		projectID = id
	}
	if _, err := r.projects.AuthorizeRoom(ctx, e.RoomID, projectID, e.UserID); err != nil {
		reason := "Internal server error"
		if apiErr, ok := errors.As(err); ok {
			reason = apiErr.Message
		}
		logrus.WithFields(logrus.Fields{
			"component":  "router",
			"room":       e.RoomID,
			"project_id": projectID,
			"user_id":    e.UserID,
		}).WithError(err).Info("join refused")
		emitJoinError(conn, reason)
		return nil
	}
	// the hub reports join failures to the connection itself
	_ = r.hub.Join(ctx, conn, e.RoomID, e.UserID)
	return nil
}

func emitJoinError(conn Conn, reason string) {
	conn.Emit(room.EventRoomConnectionError, map[string]string{
		"message": "Failed to join room",
		"error":   reason,
	})
}

func (r *Router) setTodoStatus(ctx context.Context, conn Conn, roomID, todoID string, done bool) error {
	if err := r.inRoom(conn, roomID); err != nil {
		return err
	}
	view, err := r.todos.SetStatus(ctx, roomID, todoID, conn.UserID(), done)
	if err != nil {
		return err
	}
	event := room.EventTodoPending
	if done {
		event = room.EventTodoCompleted
	}
	r.hub.Broadcast(roomID, event, view)
	return nil
}

func (r *Router) inRoom(conn Conn, roomID string) error {
	if !r.hub.IsSubscribed(conn, roomID) {
		return errNotInRoom
	}
	return nil
}

// emitError reports err as server-error. Internal details stay in the logs.
func emitError(conn Conn, err error) {
	message := "Internal server error"
	var verr *ValidationError
	switch {
	case defError.As(err, &verr):
		message = verr.Error()
	case defError.Is(err, ErrUnknownEvent):
		message = err.Error()
	default:
		if apiErr, ok := errors.As(err); ok {
			message = apiErr.Message
		}
	}
	conn.Emit(room.EventServerError, map[string]string{"message": message})
}
