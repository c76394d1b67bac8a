package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAlumni  Role = "alumni"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAlumni
}

const DefaultAvatarURL = "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcSZv5fMEw3s3nvP0sxLIG8bO6RzCLmqgzW5ww&s"

// User is owned by the profile service; this module only reads it.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           Role      `json:"role"`
	AvatarURL      *string   `json:"avatar_url"`
	Company        *string   `json:"company"`
	Position       *string   `json:"position"`
	Department     *string   `json:"department"`
	GraduationYear *int      `json:"graduation_year"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserProjection is the lightweight view of a user embedded in listings.
type UserProjection struct {
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           Role    `json:"role"`
	Avatar         string  `json:"avatar"`
	Company        *string `json:"company,omitempty"`
	Position       *string `json:"position,omitempty"`
	Department     *string `json:"department,omitempty"`
	GraduationYear *int    `json:"graduation_year,omitempty"`
}

func ProjectUser(user *User) UserProjection {
	projection := UserProjection{
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		Avatar: DefaultAvatarURL,
	}
	if user.AvatarURL != nil && *user.AvatarURL != "" {
		projection.Avatar = *user.AvatarURL
	}
	// Role-specific fields: alumni carry employer data, students carry academic data.
	switch user.Role {
	case RoleAlumni:
		projection.Company = user.Company
		projection.Position = user.Position
		projection.GraduationYear = user.GraduationYear
	case RoleStudent:
		projection.Department = user.Department
		projection.GraduationYear = user.GraduationYear
	}
	return projection
}

// NormalizeEmail is the canonical form used for every identity comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
