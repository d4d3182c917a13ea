package models

import "time"

// Identity is the authenticated user as reported by the API session endpoint.
type Identity struct {
	ID          string
	Username    string
	Email       string
	FirstName   string
	LastName    string
	FullName    string
	Bio         string
	AvatarURL   string
	PhoneNumber string
	Timezone    string
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

// IdentityUpdate is the profile edit payload. Every field is sent so an
// emptied input clears the stored value; only a blank email is left out.
type IdentityUpdate struct {
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl"`
	PhoneNumber string `json:"phoneNumber"`
	Timezone    string `json:"timezone"`
}
