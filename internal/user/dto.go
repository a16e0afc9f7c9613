package user

import "strings"

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	DisplayName string  `json:"displayName" validate:"required,min=1,max=50"`
	Email       string  `json:"email" validate:"required,email"`
	AvatarURL   *string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}

// Normalize trims user-entered text
func (r *CreateUserRequest) Normalize() {
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,min=1,max=50"`
	AvatarURL   *string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Email       string  `json:"email"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
