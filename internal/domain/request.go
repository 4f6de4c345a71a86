package domain

const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// Request is an invitation from a project creator to another user. Only
// pending requests may change state. At most one request per
// (project, sender, receiver) may be pending; a partial unique index enforces it.
type Request struct {
	Model
	ProjectID  string   `gorm:"type:uuid;not null;uniqueIndex:idx_request_pending,where:status = 'pending'" json:"projectId"`
	Project    *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	SenderID   string   `gorm:"type:uuid;not null;uniqueIndex:idx_request_pending" json:"senderId"`
	Sender     *User    `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	ReceiverID string   `gorm:"type:uuid;not null;uniqueIndex:idx_request_pending;index:idx_request_receiver" json:"receiverId"`
	Status     string   `gorm:"type:varchar(10);not null;default:pending" json:"status"`
}

// IsTerminal reports whether the request can no longer change
func (r *Request) IsTerminal() bool {
	return r.Status == RequestAccepted || r.Status == RequestRejected
}
