package models

import "time"

type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	PhoneNumber  *string   `json:"phone_number" db:"phone_number"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UserView is the projection handed outside the store. It has no password
// hash field at all, so nothing that renders or encodes a view can leak one.
type UserView struct {
	ID          int       `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	PhoneNumber *string   `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) View() *UserView {
	return &UserView{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   u.CreatedAt,
	}
}
