// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"fmt"
	"strings"
	"time"
)

// Category partitions tasks for client-side filtering.
type Category string

const (
	Personal     Category = "personal"
	Professional Category = "professional"
)

// Categories lists every category in display order.
var Categories = []Category{Personal, Professional}

// ParseCategory parses a category name (case-insensitive, trimmed).
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case Personal:
		return Personal, nil
	case Professional:
		return Professional, nil
	}
	return "", fmt.Errorf("invalid category: %s", s)
}

// Title returns the capitalized category name.
func (c Category) Title() string {
	switch c {
	case Personal:
		return "Personal"
	case Professional:
		return "Professional"
	}
	return string(c)
}

// Task represents a single to-do item.
// ID is assigned by the backend and is the only correlation key.
type Task struct {
	ID          string
	Description string
	Category    Category
	Completed   bool
	Created     time.Time
}

// TaskPatch holds the fields of an update. Nil fields are left unchanged.
type TaskPatch struct {
	Description *string
	Category    *Category
	Completed   *bool
}

// Session identifies the signed-in user.
type Session struct {
	UID   string
	Email string
}

// SignUp carries the registration form.
type SignUp struct {
	FirstName string
	Surname   string
	Email     string
	Phone     string
	Password  string
	Confirm   string
}

// Validate checks the form the same way the registration page does.
func (s SignUp) Validate() error {
	for _, v := range []string{s.FirstName, s.Surname, s.Email, s.Phone, s.Password, s.Confirm} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: All fields are required", ErrInvalidInput)
		}
	}
	if s.Password != s.Confirm {
		return fmt.Errorf("%w: Passwords do not match", ErrInvalidInput)
	}
	return nil
}
