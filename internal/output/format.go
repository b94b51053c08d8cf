// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasksync/internal/service"
)

// FormatTask formats a task line.
// Format: "{N:>4}  [x] {TITLE}  {PRIORITY}  due {DATE}[  overdue]\n"
// The box is checked for completed tasks. A pending task due before today
// is marked overdue.
func FormatTask(w io.Writer, num int, task service.Task, today service.Date) {
	box := " "
	if task.Status == service.StatusCompleted {
		box = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s  %s", num, box, normalizeTitle(task.Title), task.Priority)
	if !task.DueDate.IsZero() {
		fmt.Fprintf(w, "  due %s", task.DueDate)
	}
	if IsOverdue(task, today) {
		fmt.Fprint(w, "  overdue")
	}
	fmt.Fprintln(w)
}

// FormatTaskDetail prints every field of a task, one per line.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "id:          %s\n", task.ID)
	fmt.Fprintf(w, "title:       %s\n", normalizeTitle(task.Title))
	fmt.Fprintf(w, "description: %s\n", flatten(task.Description))
	fmt.Fprintf(w, "priority:    %s\n", task.Priority)
	fmt.Fprintf(w, "status:      %s\n", task.Status)
	fmt.Fprintf(w, "due:         %s\n", task.DueDate)
}

// FormatUser formats the signed-in user.
func FormatUser(w io.Writer, u service.User) {
	fmt.Fprintf(w, "%s <%s>\n", u.Name, u.Email)
}

// IsOverdue reports whether a pending task's due date has passed.
func IsOverdue(task service.Task, today service.Date) bool {
	return task.Status != service.StatusCompleted && !task.DueDate.IsZero() && task.DueDate.Before(today)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = flatten(title)
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
