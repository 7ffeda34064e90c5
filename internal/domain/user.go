package domain

import "time"

// User is a known identity with its public profile fields.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarRef string    `json:"avatar_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the subset of User shown next to a conversation.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name,omitempty"`
	AvatarRef string `json:"avatar_ref,omitempty"`
}

// Profile projects u to its public profile.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarRef: u.AvatarRef,
	}
}

// UserModel is the GORM model for users table.
type UserModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Username  string    `gorm:"type:varchar(50);index;not null"`
	FullName  string    `gorm:"type:varchar(100)"`
	AvatarRef string    `gorm:"type:varchar(1024)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:        m.ID,
		Username:  m.Username,
		FullName:  m.FullName,
		AvatarRef: m.AvatarRef,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarRef: u.AvatarRef,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UpdateProfileRequest is the body of PUT /users/me.
type UpdateProfileRequest struct {
	FullName  string `json:"full_name" validate:"max=100"`
	AvatarRef string `json:"avatar_ref" validate:"max=1024"`
}
