package users

import "errors"

var ErrNotFound = errors.New("user not found")

type UserRepo interface {
	Upsert(user *User) error
	Delete(email string) error
	GetByEmail(email string) (*User, error)
	GetByID(ID string) (*User, error)
}
