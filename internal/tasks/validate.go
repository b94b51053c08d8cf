package tasks

import (
	"strings"

	"tasksync/internal/failure"
	"tasksync/internal/service"
)

// ValidateNew checks the caller-side preconditions of creating a task.
// The due date may not be before today; editing an existing task is not
// subject to that rule (see ValidatePatch).
func ValidateNew(fields service.TaskFields, today service.Date) error {
	op := string(FamilyCreate)
	if strings.TrimSpace(fields.Title) == "" {
		return failure.NewValidation(op, "title required")
	}
	if strings.TrimSpace(fields.Description) == "" {
		return failure.NewValidation(op, "description required")
	}
	if !fields.Priority.Valid() {
		return failure.NewValidation(op, "invalid priority: %q", fields.Priority)
	}
	if !fields.Status.Valid() {
		return failure.NewValidation(op, "invalid status: %q", fields.Status)
	}
	if fields.DueDate.IsZero() {
		return failure.NewValidation(op, "due date required")
	}
	if fields.DueDate.Before(today) {
		return failure.NewValidation(op, "due date cannot be in the past")
	}
	return nil
}

// ValidatePatch checks an update: at least one field, and any text or enum
// field that is set must be valid.
func ValidatePatch(id string, patch service.TaskPatch) error {
	op := string(FamilyUpdate)
	if strings.TrimSpace(id) == "" {
		return failure.NewValidation(op, "task id required")
	}
	if patch.IsEmpty() {
		return failure.NewValidation(op, "nothing to update")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return failure.NewValidation(op, "title cannot be empty")
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return failure.NewValidation(op, "description cannot be empty")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return failure.NewValidation(op, "invalid priority: %q", *patch.Priority)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return failure.NewValidation(op, "invalid status: %q", *patch.Status)
	}
	return nil
}
