package tasks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/failure"
	"tasksync/internal/service"
	"tasksync/internal/tasks"
)

func ptr[T any](v T) *T { return &v }

func TestValidateNew(t *testing.T) {
	today, err := service.ParseDate("2026-10-16")
	require.NoError(t, err)

	valid := service.TaskFields{
		Title:       "Write report",
		Description: "Q3 numbers",
		Priority:    service.PriorityHigh,
		Status:      service.StatusPending,
		DueDate:     today,
	}

	tests := []struct {
		name    string
		modify  func(*service.TaskFields)
		wantErr string
	}{
		{"valid", func(*service.TaskFields) {}, ""},
		{"blank title", func(f *service.TaskFields) { f.Title = "  " }, "title required"},
		{"blank description", func(f *service.TaskFields) { f.Description = "" }, "description required"},
		{"bad priority", func(f *service.TaskFields) { f.Priority = "urgent" }, `invalid priority: "urgent"`},
		{"bad status", func(f *service.TaskFields) { f.Status = "doing" }, `invalid status: "doing"`},
		{"no due date", func(f *service.TaskFields) { f.DueDate = service.Date{} }, "due date required"},
		{"past due date", func(f *service.TaskFields) { f.DueDate = today.AddDays(-1) }, "due date cannot be in the past"},
		{"future due date", func(f *service.TaskFields) { f.DueDate = today.AddDays(30) }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.modify(&f)
			err := tasks.ValidateNew(f, today)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			fe, ok := failure.As(err)
			require.True(t, ok)
			assert.Equal(t, failure.Validation, fe.Kind)
			assert.Equal(t, tt.wantErr, fe.Message)
		})
	}
}

func TestValidatePatch(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		patch   service.TaskPatch
		wantErr string
	}{
		{"title", "t1", service.TaskPatch{Title: ptr("x")}, ""},
		{"past due date allowed", "t1", service.TaskPatch{DueDate: ptr(service.Today().AddDays(-10))}, ""},
		{"no id", "", service.TaskPatch{Title: ptr("x")}, "task id required"},
		{"empty", "t1", service.TaskPatch{}, "nothing to update"},
		{"blank title", "t1", service.TaskPatch{Title: ptr(" ")}, "title cannot be empty"},
		{"blank description", "t1", service.TaskPatch{Description: ptr("")}, "description cannot be empty"},
		{"bad priority", "t1", service.TaskPatch{Priority: ptr(service.Priority("x"))}, `invalid priority: "x"`},
		{"bad status", "t1", service.TaskPatch{Status: ptr(service.Status("x"))}, `invalid status: "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tasks.ValidatePatch(tt.id, tt.patch)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			fe, ok := failure.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantErr, fe.Message)
		})
	}
}
