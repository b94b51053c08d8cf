package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"tasksync/internal/service"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Num int    // 1-based position in the listed collection; 0 if ID is set
	ID  string // task id
}

// Reference errors.
var (
	ErrTaskRefRequired = errors.New("task reference required")
	ErrOutOfRange      = errors.New("task number out of range")
	ErrTaskNotFound    = errors.New("task not found")
)

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
// 1. No args → ErrTaskRefRequired
// 2. First arg is all digits → position in the list (e.g., 3)
// 3. Otherwise the first arg is a task id; ids may not contain whitespace
// Extra args are rejected.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("unexpected argument: %s", args[1])
	}

	arg := args[0]
	if isAllDigits(arg) {
		num, err := strconv.Atoi(arg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		return TaskRef{Num: num}, nil
	}
	if strings.IndexFunc(arg, unicode.IsSpace) >= 0 {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
	}
	return TaskRef{ID: arg}, nil
}

// String returns the reference as typed.
func (r TaskRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return strconv.Itoa(r.Num)
}

// Resolve finds the referenced task in ts, numbered as the list command
// prints them.
func (r TaskRef) Resolve(ts []service.Task) (service.Task, error) {
	if r.ID != "" {
		for _, t := range ts {
			if t.ID == r.ID {
				return t, nil
			}
		}
		return service.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, r.ID)
	}
	if r.Num < 1 || r.Num > len(ts) {
		return service.Task{}, fmt.Errorf("%w: %d", ErrOutOfRange, r.Num)
	}
	return ts[r.Num-1], nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
