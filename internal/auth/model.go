package auth

import "crm-service/internal/counselor"

// RegisterRequest is the request body for registration
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is the response for successful registration or login
type AuthResponse struct {
	Message  string               `json:"message"`
	Employee *counselor.Counselor `json:"employee"`
	Token    string               `json:"token"`
}
