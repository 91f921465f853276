package domain

import "time"

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	ContactNumber string    `json:"contactNumber"`
	Cart          []string  `json:"cart"` // item ids, unique
	CreatedAt     time.Time `json:"createdAt"`
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	FirstName     *string `json:"firstName,omitempty"`
	LastName      *string `json:"lastName,omitempty"`
	ContactNumber *string `json:"contactNumber,omitempty"`
}

func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.ContactNumber == nil
}

// Contact is the public part of a user shown to the other party of an order.
type Contact struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	ContactNumber string `json:"contactNumber"`
}

func (u User) Contact() *Contact {
	return &Contact{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		ContactNumber: u.ContactNumber,
	}
}

// Identity is the authenticated caller of a core operation.
type Identity struct {
	UserID string
	Email  string
}
