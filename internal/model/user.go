package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserType distinguishes commission-earning agents from back-office admins
type UserType string

const (
	UserTypeAgent UserType = "AGENT"
	UserTypeAdmin UserType = "ADMIN"
)

// User represents an authenticated user in the system
type User struct {
	BaseModel
	Name     string   `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Email    string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password string   `gorm:"type:varchar(255);not null" json:"-"` // Hidden from JSON
	UserType UserType `gorm:"type:varchar(20);not null;default:'AGENT'" json:"user_type" validate:"required,oneof=AGENT ADMIN"`
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	UserType  UserType  `json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		UserType:  u.UserType,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// AgentSummary is the display projection attached to sales and reports
type AgentSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ToAgentSummary converts User to its sale-facing projection
func (u *User) ToAgentSummary() AgentSummary {
	return AgentSummary{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}
