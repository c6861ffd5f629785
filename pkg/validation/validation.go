package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// EmailRegex validates email format
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	nicknameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)
)

// ValidateEmail validates email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email is too long (max 254 characters)")
	}
	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateNickname validates the display name shown to call partners
func ValidateNickname(nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return fmt.Errorf("nickname is required")
	}
	if len(nickname) < 2 {
		return fmt.Errorf("nickname must be at least 2 characters")
	}
	if len(nickname) > 50 {
		return fmt.Errorf("nickname is too long (max 50 characters)")
	}
	if !nicknameRegex.MatchString(nickname) {
		return fmt.Errorf("nickname contains invalid characters (only letters, numbers, spaces, _, - allowed)")
	}
	return nil
}

// ValidatePassword validates password
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	if len(password) > 128 {
		return fmt.Errorf("password is too long (max 128 characters)")
	}
	return nil
}
