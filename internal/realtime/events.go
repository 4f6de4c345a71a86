package realtime

import (
	"encoding/json"
	defError "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Client to server events
const (
	EventJoinProjectRoom          = "joinProjectRoom"
	EventUpdateProjectDescription = "update-project-description"
	EventUpdateProjectLinks       = "update-project-links"
	EventToggleProjectStatus      = "toggle-project-status"
	EventAddProjectLog            = "add-project-log"
	EventNewTodo                  = "new-todo"
	EventMarkTodoCompleted        = "mark-todo-completed"
	EventMarkTodoPending          = "mark-todo-pending"
	EventDeleteTodo               = "delete-todo"
)

var ErrUnknownEvent = defError.New("unknown event")

// Frame is the wire shape of every message in both directions
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JoinProjectRoom may omit ProjectID; it is then read back from the room key
type JoinProjectRoom struct {
	RoomID    string `json:"roomID" validate:"notblank"`
	UserID    string `json:"userId" validate:"notblank"`
	ProjectID string `json:"projectId"`
}

type UpdateProjectDescription struct {
	RoomID      string `json:"roomID" validate:"notblank"`
	ProjectID   string `json:"projectId" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
}

type UpdateProjectLinks struct {
	RoomID    string   `json:"roomID" validate:"notblank"`
	ProjectID string   `json:"projectId" validate:"notblank"`
	Links     []string `json:"links" validate:"required"`
}

type ToggleProjectStatus struct {
	RoomID       string `json:"roomID" validate:"notblank"`
	ProjectID    string `json:"projectId" validate:"notblank"`
	ActiveStatus *bool  `json:"activeStatus" validate:"required"`
}

type AddProjectLog struct {
	RoomID      string `json:"roomID" validate:"notblank"`
	ProjectID   string `json:"projectId" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
}

type NewTodo struct {
	Title       string `json:"title" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
	Status      *bool  `json:"status" validate:"required"`
	CreatedBy   string `json:"createdBy" validate:"notblank"`
	ProjectID   string `json:"projectId" validate:"notblank"`
	Priority    string `json:"priority" validate:"notblank,oneof=low medium high"`
	RoomID      string `json:"roomID" validate:"notblank"`
	Date        string `json:"date" validate:"notblank,datetime=2006-01-02"`
}

type MarkTodoCompleted struct {
	TodoID string `json:"todoId" validate:"notblank"`
	RoomID string `json:"roomID" validate:"notblank"`
}

type MarkTodoPending struct {
	TodoID string `json:"todoId" validate:"notblank"`
	RoomID string `json:"roomID" validate:"notblank"`
}

type DeleteTodo struct {
	TodoID string `json:"todoId" validate:"notblank"`
	RoomID string `json:"roomID" validate:"notblank"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	// report json names so errors match what the client sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func newEvent(name string) (any, bool) {
	switch name {
	case EventJoinProjectRoom:
		return &JoinProjectRoom{}, true
	case EventUpdateProjectDescription:
		return &UpdateProjectDescription{}, true
	case EventUpdateProjectLinks:
		return &UpdateProjectLinks{}, true
	case EventToggleProjectStatus:
		return &ToggleProjectStatus{}, true
	case EventAddProjectLog:
		return &AddProjectLog{}, true
	case EventNewTodo:
		return &NewTodo{}, true
	case EventMarkTodoCompleted:
		return &MarkTodoCompleted{}, true
	case EventMarkTodoPending:
		return &MarkTodoPending{}, true
	case EventDeleteTodo:
		return &DeleteTodo{}, true
	}
	return nil, false
}

// ValidationError lists the offending fields of an inbound event
type ValidationError struct {
	Event  string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Event, strings.Join(e.Fields, ", "))
}

// Decode turns a frame into its typed, validated event
func Decode(frame Frame) (any, error) {
	event, ok := newEvent(frame.Event)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}
	if len(frame.Data) == 0 || string(frame.Data) == "null" {
		return nil, &ValidationError{Event: frame.Event, Fields: []string{"data is required"}}
	}
	if err := json.Unmarshal(frame.Data, event); err != nil {
		return nil, &ValidationError{Event: frame.Event, Fields: []string{"malformed payload"}}
	}

	if err := validate.Struct(event); err != nil {
		var verrs validator.ValidationErrors
		if !defError.As(err, &verrs) {
			return nil, err
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, describe(fe))
		}
		return nil, &ValidationError{Event: frame.Event, Fields: fields}
	}
	return event, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "datetime":
		return fe.Field() + " must be a date formatted as YYYY-MM-DD"
	}
	return fe.Field() + " is invalid"
}
