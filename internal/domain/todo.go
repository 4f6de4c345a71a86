package domain

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// TodoDateLayout is the calendar-day format todos are keyed by
const TodoDateLayout = "2006-01-02"

// Todo belongs to one project and one calendar day. Date is stored as the
// client supplied local-date string and only ever compared for equality.
type Todo struct {
	Model
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"not null" json:"description"`
	Status      bool   `gorm:"not null;default:false" json:"status"`
	Priority    string `gorm:"type:varchar(10);not null" json:"priority"`
	CreatedBy   string `gorm:"type:uuid;not null" json:"-"`
	Creator     *User  `gorm:"foreignKey:CreatedBy" json:"-"`
	ProjectID   string `gorm:"type:uuid;not null;index:idx_todo_project_date" json:"projectId"`
	Date        string `gorm:"type:varchar(10);not null;index:idx_todo_project_date" json:"date"`
}

// TodoView is a todo with createdBy expanded to the creator's profile
type TodoView struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      bool    `json:"status"`
	Priority    string  `json:"priority"`
	CreatedBy   Profile `json:"createdBy"`
	ProjectID   string  `json:"projectId"`
	Date        string  `json:"date"`
}

// View expands the todo using the preloaded Creator, falling back to a bare id
func (t *Todo) View() TodoView {
	createdBy := Profile{ID: t.CreatedBy}
	if t.Creator != nil {
		createdBy = t.Creator.ToProfile()
	}
	return TodoView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedBy:   createdBy,
		ProjectID:   t.ProjectID,
		Date:        t.Date,
	}
}
