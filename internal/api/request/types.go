package request

// RegisterRequest is the request body for registering a user.
// Rating is optional and defaults to the standard starting rating.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Rating   int    `json:"rating,omitempty"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
