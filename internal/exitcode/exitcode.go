// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates bad arguments, a failed precondition or an
	// unknown task reference.
	UserError = 1

	// AuthError indicates a missing session or one the server refused.
	AuthError = 2

	// BackendError indicates an API, network or storage error.
	BackendError = 3
)
