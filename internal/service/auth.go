package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials возвращается при неверном пароле администратора.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthenticateAdmin сверяет пароль с bcrypt-хэшем из конфигурации.
func (s *Service) AuthenticateAdmin(password string) error {
	if len(s.cfg.AdminPasswordHash) == 0 || password == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.cfg.AdminPasswordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
