package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is shared by the gorm and mongo stores. RefreshToken is only populated by
// reads that ask for it explicitly.
type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"        bson:"_id"`
	Username     string    `gorm:"uniqueIndex;not null"        json:"username"  bson:"username"`
	Email        string    `gorm:"uniqueIndex;not null"        json:"email"     bson:"email"`
	PasswordHash string    `gorm:"not null"                    json:"-"         bson:"password"`
	Role         string    `gorm:"not null;default:user;index" json:"role"      bson:"role"`
	RefreshToken *string   `gorm:"column:refresh_token"        json:"-"         bson:"refreshToken,omitempty"`
	CreatedAt    time.Time `gorm:"index"                       json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `                                   json:"updatedAt" bson:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) HasRefreshToken() bool { return u.RefreshToken != nil && *u.RefreshToken != "" }

// SessionUser is what the client keeps: no email, no secrets.
type SessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (u *User) Session() SessionUser {
	return SessionUser{ID: u.ID, Username: u.Username, Role: u.Role}
}

type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
