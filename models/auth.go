// models/auth.go

package models

import "time"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// FirebaseLoginRequest exchanges a Firebase ID token for an API token.
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type Operator struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	Role     string `json:"role"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Operator  Operator  `json:"operator"`
}
