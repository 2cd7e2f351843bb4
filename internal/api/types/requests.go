package types

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HackathonRequest is the stage 1 input. Emptiness is checked by the wizard
// so the user sees its message.
type HackathonRequest struct {
	Name  string `json:"name"`
	Rules string `json:"rules"`
}
