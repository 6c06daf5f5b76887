// Package credentials генерирует доступы к хостингу и хэширует пароли.
package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	loginPrefix    = "host_"
	passwordLength = 16
)

// Cost стоимость bcrypt, как в исходной конфигурации портала.
var Cost = 12

// Credentials доступы к хостингу. Password отдаётся клиенту один раз и не сохраняется.
type Credentials struct {
	Login        string
	Password     string
	PasswordHash []byte
}

// Generate создаёт случайный логин и пароль хостинга.
func Generate() (Credentials, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return Credentials{}, fmt.Errorf("generate login: %w", err)
	}

	secret := make([]byte, passwordLength)
	if _, err := rand.Read(secret); err != nil {
		return Credentials{}, fmt.Errorf("generate password: %w", err)
	}
	password := base64.RawURLEncoding.EncodeToString(secret)

	hash, err := HashPassword(password)
	if err != nil {
		return Credentials{}, err
	}

	return Credentials{
		Login:        loginPrefix + hex.EncodeToString(suffix),
		Password:     password,
		PasswordHash: hash,
	}, nil
}

// HashPassword возвращает bcrypt-хэш пароля.
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword сверяет пароль с bcrypt-хэшем.
func CheckPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
