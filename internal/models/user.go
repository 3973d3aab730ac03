package models

import "time"

// VerificationThreshold is the number of completed sales a seller needs to be verified.
const VerificationThreshold = 5

type User struct {
	ID                    int64     `json:"id"`
	FirstName             string    `json:"first_name"`
	LastName              string    `json:"last_name"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	PasswordHash          string    `json:"-"` // never return
	Phone                 string    `json:"phone,omitempty"`
	City                  string    `json:"city,omitempty"`
	Country               string    `json:"country,omitempty"`
	Verified              bool      `json:"verified"`
	VerificationRequested bool      `json:"verification_requested"`
	IsAdmin               bool      `json:"is_admin"`
	CreatedAt             time.Time `json:"created_at"`
}

// Favorite marks a listing a user wants to come back to
type Favorite struct {
	UserID    int64     `json:"user_id"`
	ListingID int64     `json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`
}
