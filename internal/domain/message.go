package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Message struct {
	Model
	ProjectID  string                       `gorm:"type:uuid;not null;index:idx_message_project" json:"projectId"`
	SenderID   string                       `gorm:"type:uuid;not null" json:"-"`
	Sender     *User                        `gorm:"foreignKey:SenderID" json:"-"`
	Content    string                       `gorm:"not null" json:"content"`
	Attachment datatypes.JSONType[*FileRef] `gorm:"type:jsonb" json:"attachment"`
}

// MessageView is a message with the sender expanded
type MessageView struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	Sender     Profile   `json:"sender"`
	Content    string    `json:"content"`
	Attachment *FileRef  `json:"attachment"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// View expands the message using the preloaded Sender
func (m *Message) View() MessageView {
	sender := Profile{ID: m.SenderID}
	if m.Sender != nil {
		sender = m.Sender.ToProfile()
	}
	return MessageView{
		ID:         m.ID,
		ProjectID:  m.ProjectID,
		Sender:     sender,
		Content:    m.Content,
		Attachment: m.Attachment.Data(),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
