package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidUsername = errors.New("username must be between 3 and 50 characters")
	ErrInvalidEmail    = errors.New("email address is not valid")
)

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Username  string  `json:"username" example:"sara"`
	Email     string  `json:"email" example:"sara@example.com"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Normalize trims the username and lower-cases the email
func (r *CreateUserRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// Validate checks the request after Normalize
func (r *CreateUserRequest) Validate() error {
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(r.Email); err != nil || !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Validate checks the optional fields that are present
func (r *UpdateUserRequest) Validate() error {
	if r.Username == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*r.Username)
	r.Username = &trimmed
	return validateUsername(trimmed)
}

func validateUsername(name string) error {
	if n := len([]rune(name)); n < 3 || n > 50 {
		return ErrInvalidUsername
	}
	return nil
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt string    `json:"created_at"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
