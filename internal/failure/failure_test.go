package failure_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"tasksync/internal/failure"
)

func TestNewRejected_FallbackMessage(t *testing.T) {
	fe := failure.NewRejected("login", http.StatusInternalServerError, "")
	if fe.Error() != "request failed with status code 500" {
		t.Errorf("unexpected message: %q", fe.Error())
	}
	if fe.Kind != failure.Rejected {
		t.Errorf("expected Rejected, got %s", fe.Kind)
	}
}

func TestNewNetwork_Timeout(t *testing.T) {
	fe := failure.NewNetwork("fetch", fmt.Errorf("get: %w", context.DeadlineExceeded))
	if fe.Message != "request timed out" {
		t.Errorf("expected timeout message, got %q", fe.Message)
	}
	if !errors.Is(fe, context.DeadlineExceeded) {
		t.Error("expected failure to unwrap to DeadlineExceeded")
	}
}

func TestIsAuth(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		fe := failure.NewRejected("update", tt.status, "no")
		if got := fe.IsAuth(); got != tt.want {
			t.Errorf("IsAuth(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestFrom(t *testing.T) {
	// Already classified: kind and message preserved, op filled in
	in := &failure.Error{Kind: failure.Rejected, Status: 400, Message: "bad"}
	got := failure.From("create", fmt.Errorf("wrapped: %w", in), "Failed")
	if got.Kind != failure.Rejected || got.Message != "bad" || got.Op != "create" {
		t.Errorf("unexpected failure: %+v", got)
	}
	if in.Op != "" {
		t.Error("From must not mutate the original failure")
	}

	// Unclassified: becomes Network with fallback message
	got = failure.From("fetch", errors.New("boom"), "Failed to fetch tasks")
	if got.Kind != failure.Network || got.Message != "Failed to fetch tasks" {
		t.Errorf("unexpected failure: %+v", got)
	}

	if failure.From("fetch", nil, "x") != nil {
		t.Error("nil error must map to nil failure")
	}
}
