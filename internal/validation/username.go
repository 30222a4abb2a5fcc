// Package validation holds input rules shared by the HTTP layer and tooling.
package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// MaxUsernameLength matches the users.username column, in characters.
const MaxUsernameLength = 150

var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// ValidateUsername checks a username supplied by a client. Letters and digits
// of any script plus @ . + - _ are allowed.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may only contain letters, digits and @/./+/-/_")
	}
	return nil
}
