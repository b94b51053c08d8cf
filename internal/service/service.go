// Package service defines the contract the client expects from the remote API.
package service

import "context"

// Service defines the remote API operations.
// Every state store talks to the server only through this interface.
// Stores never import the HTTP client directly.
type Service interface {
	// Login authenticates with email and password and returns the user record.
	Login(ctx context.Context, email, password string) (User, error)

	// Register creates a new account and returns its user record.
	Register(ctx context.Context, name, email, password string) (User, error)

	// Logout invalidates the server-side session.
	Logout(ctx context.Context) error

	// UpdateProfile changes the name and optionally the password.
	// Returns the canonical user record.
	UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error)

	// ListTasks returns all tasks of the current user in server order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task. The server assigns ID and Order.
	CreateTask(ctx context.Context, fields TaskFields) (Task, error)

	// UpdateTask sends only the set fields of patch and returns the
	// canonical record.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)

	// DeleteTask deletes a task and returns the id the server echoes back,
	// which may be empty.
	DeleteTask(ctx context.Context, id string) (string, error)
}
