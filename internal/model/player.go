package model

import "time"

// Username uniquely identifies a user across the system
type Username string

// Identity is the resolved view of a user that the matchmaking core works with
type Identity struct {
	Username Username `json:"username"`
	Rating   int      `json:"rating"`
}

// User is the persisted profile of a registered user
type User struct {
	Username      Username  `json:"username"`
	PasswordHash  string    `json:"password_hash"`
	Rating        int       `json:"rating"`
	InitialRating int       `json:"initial_rating"`
	CreatedAt     time.Time `json:"created_at"`
}

// Identity projects the user onto the fields the core needs
func (u *User) Identity() Identity {
	return Identity{Username: u.Username, Rating: u.Rating}
}
