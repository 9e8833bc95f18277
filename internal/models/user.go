package models

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleFaculty || role == RoleAdmin
}

type User struct {
	ID                int       `db:"id" json:"id"`
	Username          string    `db:"username" json:"username"`
	Email             string    `db:"email" json:"email"`
	FullName          *string   `db:"full_name" json:"full_name,omitempty"`
	AvatarURL         *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	GithubID          *int64    `db:"github_id" json:"github_id,omitempty"`
	GithubAccessToken *string   `db:"github_access_token" json:"-"`
	PasswordHash      *string   `db:"password_hash" json:"-"`
	Role              string    `db:"role" json:"role"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u.FullName != nil && strings.TrimSpace(*u.FullName) != "" {
		return *u.FullName
	}
	return u.Username
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username cannot be empty")
	}
	if r.Password == "" {
		return errors.New("password cannot be empty")
	}
	return nil
}

// UserStats is the aggregate block returned by /auth/me.
type UserStats struct {
	Solved int `json:"solved"`
	Rank   int `json:"rank"`
	XP     int `json:"xp"`
	Streak int `json:"streak"`
}

type RecentSubmission struct {
	ID      int    `json:"id"`
	Problem string `json:"problem"`
	Status  string `json:"status"`
	Time    string `json:"time"`
}
