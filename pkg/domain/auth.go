package domain

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the success body of POST /login.
type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// MeResponse is the success body of GET /user/me.
type MeResponse struct {
	User User `json:"user"`
}

// MessageResponse is the body every endpoint uses to report failures.
type MessageResponse struct {
	Message string `json:"message"`
}
