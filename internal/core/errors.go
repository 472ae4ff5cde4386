package core

// Error codes for domain errors.
const (
	ErrCodeInvalidFormat    = "invalid_format"
	ErrCodeRoomExists       = "room_exists"
	ErrCodeRoomNotFound     = "room_not_found"
	ErrCodeWrongPassword    = "wrong_password"
	ErrCodeNotInRoom        = "not_in_room"
	ErrCodeStoreUnavailable = "store_unavailable"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeRateLimited      = "rate_limited"
)

// Admission error messages match the original ChupChat server verbatim;
// clients render them as-is.
const (
	msgRoomExists    = "Room already exists"
	msgRoomNotFound  = "Room does not exist"
	msgWrongPassword = "Incorrect password"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
