package core

import "regexp"

var (
	roomCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{4,8}$`)
	passwordPattern = regexp.MustCompile(`^\d{4}$`)
)

// ValidRoomCode reports whether code is 4-8 alphanumeric characters.
// Codes are case-sensitive.
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// ValidPassword reports whether password is a 4-digit numeric string.
func ValidPassword(password string) bool {
	return passwordPattern.MatchString(password)
}
