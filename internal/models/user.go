package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Account is an identity-provider record stored in Postgres. It is the
// source of truth for authentication only; the chat-facing profile lives
// in the Redis user directory and is written once via EnsureUser.
type Account struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex" json:"email"`
	Password   string    `json:"-"` // bcrypt hash, never serialized
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
	Picture    string    `json:"picture"`
	LastLogin  time.Time `json:"last_login,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Identity is the authenticated caller as seen by the chat layer: the
// stable opaque id plus the profile fields the directory upsert needs.
type Identity struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// DisplayName joins the name parts the way the directory stores them.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(i.GivenName + " " + i.FamilyName)
}

// Profile is the user hash stored at user:<id> in Redis.
type Profile struct {
	ID    string `json:"id" redis:"id"`
	Email string `json:"email" redis:"email"`
	Name  string `json:"name" redis:"name"`
	Image string `json:"image" redis:"image"`
}

// SignupRequest is the request structure for account creation
type SignupRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	GivenName  string `json:"given_name" binding:"required"`
	FamilyName string `json:"family_name" binding:"required"`
	Picture    string `json:"picture,omitempty"`
}

// LoginRequest is the request structure for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AccountResponse is the response structure for account data (without sensitive info)
type AccountResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
	Picture    string    `json:"picture"`
	LastLogin  time.Time `json:"last_login,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// BeforeCreate is a GORM hook to mint the opaque id and hash the password
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	hashed, err := HashPassword(a.Password)
	if err != nil {
		return err
	}
	a.Password = hashed
	return nil
}

// Identity converts an account to the identity shape handed to the chat layer
func (a *Account) Identity() Identity {
	return Identity{
		ID:         a.ID,
		Email:      a.Email,
		GivenName:  a.GivenName,
		FamilyName: a.FamilyName,
		Picture:    a.Picture,
	}
}

// ToResponse converts an Account to an AccountResponse
func (a *Account) ToResponse() AccountResponse {
	return AccountResponse{
		ID:         a.ID,
		Email:      a.Email,
		GivenName:  a.GivenName,
		FamilyName: a.FamilyName,
		Picture:    a.Picture,
		LastLogin:  a.LastLogin,
		CreatedAt:  a.CreatedAt,
	}
}
