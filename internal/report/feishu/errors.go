package feishu

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenInvalid is returned when the platform rejects the access token.
	ErrTokenInvalid = errors.New("feishu: access token invalid")
	// ErrNoTable is returned by FirstTableID for an app without tables.
	ErrNoTable = errors.New("feishu: app has no tables")
)

// Token rejection codes; the request is retried with a fresh token.
const (
	codeTokenInvalid = 99991661
	codeTokenExpired = 99991677
)

// APIError is a non-zero business code in a response envelope.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feishu: code %d: %s", e.Code, e.Msg)
}

func checkCode(code int, msg string) error {
	switch code {
	case 0:
		return nil
	case codeTokenInvalid, codeTokenExpired:
		return fmt.Errorf("%w: code %d: %s", ErrTokenInvalid, code, msg)
	default:
		return &APIError{Code: code, Msg: msg}
	}
}
