package domain

import "time"

// User as seen by the messaging core. IsActive is the presence flag toggled
// by login/logout; the core only ever reads it.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
