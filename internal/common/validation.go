package common

import (
	"regexp"
	"strings"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 25 {
		return NewValidationError("username must be between 3 and 25 characters")
	}

	if !usernameRegex.MatchString(username) {
		return NewValidationError("username can only contain letters and numbers")
	}

	return nil
}

func ValidatePostBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return NewValidationError("post text must not be empty")
	}
	if len(body) > 3000 {
		return NewValidationError("maximum post length exceeded")
	}
	return nil
}

func ValidateCommentBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return NewValidationError("comment text must not be empty")
	}
	if len(body) > 3000 {
		return NewValidationError("maximum comment length exceeded")
	}
	return nil
}
