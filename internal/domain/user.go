package domain

// User represents a user in the system
type User struct {
	Model
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	FullName     string `json:"fullName"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Password     string `gorm:"-" json:"-"` // input only, not stored in db
	PasswordHash string `json:"-"`
	Avatar       string `json:"avatar"`
	AvatarID     string `json:"-"`
	TokenVersion uint64 `gorm:"default:0" json:"-"`
}

// ToProfile converts a User to its public Profile
func (u *User) ToProfile() Profile {
	return Profile{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
	}
}

// SafeUser represents a user without sensitive information
type SafeUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// ToSafeUser converts a User to a SafeUser
func (u *User) ToSafeUser() SafeUser {
	return SafeUser{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Avatar:   u.Avatar,
	}
}
