package store

import (
	"fmt"
	"os"

	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"gopkg.in/yaml.v3"
)

type seedUser struct {
	Email          string  `yaml:"email"`
	Name           string  `yaml:"name"`
	Role           string  `yaml:"role"`
	AvatarURL      *string `yaml:"avatar_url"`
	Company        *string `yaml:"company"`
	Position       *string `yaml:"position"`
	Department     *string `yaml:"department"`
	GraduationYear *int    `yaml:"graduation_year"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

// LoadSeedUsers reads the user directory served by the memory driver:
//
//	users:
//	  - email: ana@uni.edu
//	    name: Ana
//	    role: student
//	    department: Physics
func LoadSeedUsers(path string) ([]models.User, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed users: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed users: %w", err)
	}

	users := make([]models.User, 0, len(file.Users))
	for i, entry := range file.Users {
		email := models.NormalizeEmail(entry.Email)
		if email == "" {
			return nil, fmt.Errorf("seed user %d: email is required", i)
		}
		role := models.Role(entry.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("seed user %s: unknown role %q", email, entry.Role)
		}
		users = append(users, models.User{
			ID:             int64(i + 1),
			Email:          email,
			Name:           entry.Name,
			Role:           role,
			AvatarURL:      entry.AvatarURL,
			Company:        entry.Company,
			Position:       entry.Position,
			Department:     entry.Department,
			GraduationYear: entry.GraduationYear,
		})
	}
	return users, nil
}
