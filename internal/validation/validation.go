package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Skotchmaster/store_ratings/internal/models"
)

const (
	NameMinLen    = 20
	NameMaxLen    = 60
	PasswordMin   = 8
	PasswordMax   = 16
	AddressMaxLen = 400
)

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*]`)
)

func Name(name string) error {
	if l := len(strings.TrimSpace(name)); l < NameMinLen || l > NameMaxLen {
		return fmt.Errorf("name must be between %d and %d characters", NameMinLen, NameMaxLen)
	}
	return nil
}

func Email(email string) error {
	if !emailRe.MatchString(email) {
		return errors.New("please provide a valid email")
	}
	return nil
}

// Password enforces the registration policy: 8-16 characters with at least
// one uppercase letter and one special character.
func Password(password string) error {
	if l := len(password); l < PasswordMin || l > PasswordMax {
		return fmt.Errorf("password must be between %d and %d characters", PasswordMin, PasswordMax)
	}
	if !upperRe.MatchString(password) || !specialRe.MatchString(password) {
		return errors.New("password must contain at least one uppercase letter and one special character")
	}
	return nil
}

func Address(address string) error {
	if len(address) > AddressMaxLen {
		return fmt.Errorf("address cannot exceed %d characters", AddressMaxLen)
	}
	return nil
}

func Role(role string) error {
	switch role {
	case models.RoleUser, models.RoleStoreOwner, models.RoleAdmin:
		return nil
	}
	return errors.New("role must be user, store_owner, or admin")
}

func RatingValue(rating int) error {
	if rating < 1 || rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	return nil
}
