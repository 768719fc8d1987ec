package output

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrAuth(msg string) *Error {
	return &Error{
		Code:       CodeAuth,
		Message:    msg,
		Hint:       "Run: shopctl auth login",
		HTTPStatus: 401,
	}
}

func ErrForbidden(msg string) *Error {
	return &Error{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: 403,
	}
}

func ErrNotFound(msg string) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    msg,
		HTTPStatus: 404,
	}
}

func ErrServer(status int, msg string) *Error {
	return &Error{
		Code:       CodeServer,
		Message:    msg,
		HTTPStatus: status,
	}
}

// ErrNetwork wraps a transport-level failure with actionable guidance.
// The hint deliberately spans multiple lines so terminal users see concrete
// next steps rather than a bare dial error.
func ErrNetwork(cause error) *Error {
	return &Error{
		Code:    CodeNetwork,
		Message: "Cannot reach the API server",
		Hint: strings.Join([]string{
			"Check that the server is running and the base URL is correct (shopctl config get base_url).",
			"Check your network connection and proxy settings.",
			fmt.Sprintf("Underlying error: %v", cause),
		}, "\n"),
		Cause: cause,
	}
}

func ErrAPI(status int, msg string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
	}
}

func ErrBilling(msg string) *Error {
	return &Error{
		Code:    CodeBilling,
		Message: msg,
		Hint:    "Check the store's subscription status: shopctl access billing",
	}
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsBillingMessage reports whether a backend error message signals a billing
// rejection. The backend embeds this inside an otherwise generic error body,
// so detection is by message text rather than status code.
func IsBillingMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "billing")
}
