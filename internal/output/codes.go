// Package output provides JSON/styled output formatting and error handling.
package output

// Exit codes for the shopctl process.
const (
	ExitOK        = 0 // Success
	ExitUsage     = 1 // Invalid arguments or flags
	ExitNotFound  = 2 // Resource not found
	ExitAuth      = 3 // Not authenticated
	ExitForbidden = 4 // Access denied
	ExitNetwork   = 5 // Connection/DNS/timeout error
	ExitServer    = 6 // Backend returned 5xx
	ExitAPI       = 7 // Other API failure
	ExitBilling   = 8 // Billing rejected the operation
)

// Error codes for JSON envelopes.
const (
	CodeUsage     = "usage"
	CodeNotFound  = "not_found"
	CodeAuth      = "auth_required"
	CodeForbidden = "forbidden"
	CodeNetwork   = "network"
	CodeServer    = "server_error"
	CodeAPI       = "api_error"
	CodeBilling   = "billing"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage:
		return ExitUsage
	case CodeNotFound:
		return ExitNotFound
	case CodeAuth:
		return ExitAuth
	case CodeForbidden:
		return ExitForbidden
	case CodeNetwork:
		return ExitNetwork
	case CodeServer:
		return ExitServer
	case CodeAPI:
		return ExitAPI
	case CodeBilling:
		return ExitBilling
	default:
		return ExitAPI
	}
}
