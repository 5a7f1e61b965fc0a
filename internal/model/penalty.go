package model

// Penalty is the projection of a user's decline penalty
type Penalty struct {
	User                Identity `json:"user"`
	ConsecutiveDeclines int      `json:"consecutive_declines"`
	IsActive            bool     `json:"is_active"`
	SecondsLeft         int      `json:"seconds_left"`
}
