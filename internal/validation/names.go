package validation

import (
	"errors"
	"fmt"
	"regexp"
)

// NamePattern определяет допустимый формат имени store и id пира
// Только латинские буквы, цифры, '_', '-' и '.'
var NamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// MaxNameLen максимальная длина имени
const MaxNameLen = 64

// ErrInvalidName indicates that store name or peer id has invalid format
var ErrInvalidName = errors.New("invalid name")

// ValidateStoreName проверяет имя store. Имя становится префиксом
// ключей хранилища и id каналов "{store}/{branch}", поэтому '/' запрещен.
func ValidateStoreName(name string) error {
	return validateName("store name", name)
}

// ValidatePeerID проверяет id пира. UUID проходит проверку.
func ValidatePeerID(id string) error {
	return validateName("peer id", id)
}

func validateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidName, kind)
	}

	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %s must not exceed %d characters", ErrInvalidName, kind, MaxNameLen)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("%w: %s can only contain letters, numbers, '_', '-' and '.'", ErrInvalidName, kind)
	}

	return nil
}
