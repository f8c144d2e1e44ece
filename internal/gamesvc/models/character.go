package models

import "time"

type Character struct {
	ID        int64     `json:"id"` // Primary key
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	Active    bool      `json:"active"` // inactive characters are excluded from assignment
	CreatedAt time.Time `json:"created_at"`
}
