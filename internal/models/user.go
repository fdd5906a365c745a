package models

import "time"

// User represents a row in the PostgreSQL users table.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // never serialize
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Settings holds a user's completion API preferences.
type Settings struct {
	APIKey    string    `json:"api_key"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasKey reports whether an API key has been saved.
func (s Settings) HasKey() bool {
	return s.APIKey != ""
}
