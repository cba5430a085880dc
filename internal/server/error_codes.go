package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeMissingRequired = 1003
	ErrCodeInvalidToken    = 1004
	ErrCodeInvalidBase64   = 1005

	// Domain state (2xxx)
	ErrCodeFileNotFound      = 2001
	ErrCodeRecipientNotFound = 2002
	ErrCodeRecipientNoEmail  = 2003
	ErrCodeDecryptFailed     = 2004
	ErrCodeUsernameTaken     = 2101
	ErrCodeEmailTaken        = 2102

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeFileNotFound
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
