package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserAlreadyExist = errors.New("user already exists")
	ErrSessionNotFound  = errors.New("session not found")
)

type GormRepo struct {
	DB *gorm.DB
}
