package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/warren-dev/warren/pkg/models"
)

// checkboxPattern matches checkbox-style task lines embedded in note prose:
// "- [ ] text", "- [~] text", "- [x] text" (optionally indented).
var checkboxPattern = regexp.MustCompile(`^(\s*)- \[( |~|x|X)\] (.*)$`)

// CheckboxLine is one parsed checkbox task line.
type CheckboxLine struct {
	Indent string
	Status models.TaskStatus
	Text   string
}

// ParseCheckboxLine parses a single line. ok is false when the line is not a
// checkbox task line.
func ParseCheckboxLine(line string) (CheckboxLine, bool) {
	m := checkboxPattern.FindStringSubmatch(line)
	if m == nil {
		return CheckboxLine{}, false
	}
	return CheckboxLine{
		Indent: m[1],
		Status: markerToStatus(m[2]),
		Text:   m[3],
	}, true
}

func markerToStatus(marker string) models.TaskStatus {
	switch marker {
	case "~":
		return models.TaskInProgress
	case "x", "X":
		return models.TaskDone
	default:
		return models.TaskNotStarted
	}
}

func statusToMarker(status models.TaskStatus) string {
	switch status {
	case models.TaskInProgress:
		return "~"
	case models.TaskDone:
		return "x"
	default:
		return " "
	}
}

// renderCheckboxLine formats a checkbox line back into note prose.
func renderCheckboxLine(cb CheckboxLine) string {
	return fmt.Sprintf("%s- [%s] %s", cb.Indent, statusToMarker(cb.Status), cb.Text)
}

// UpdateTask rewrites the checkbox line at the given 1-based line number,
// setting its status and, when newText is non-empty, its text. Returns
// ErrTaskLineNotFound when the line does not exist or is not a checkbox
// line.
func (g *taskGraph) UpdateTask(workspacePath, noteID string, lineNumber int, status models.TaskStatus, newText string) error {
	note, err := g.notes.Get(workspacePath, noteID)
	if err != nil {
		return fmt.Errorf("updating task line: %w", err)
	}

	lines := strings.Split(note.Content, "\n")
	if lineNumber < 1 || lineNumber > len(lines) {
		return fmt.Errorf("updating task line %d in note %s: %w", lineNumber, noteID, ErrTaskLineNotFound)
	}

	cb, ok := ParseCheckboxLine(lines[lineNumber-1])
	if !ok {
		return fmt.Errorf("line %d in note %s is not a task line: %w", lineNumber, noteID, ErrTaskLineNotFound)
	}

	cb.Status = status
	if newText != "" {
		cb.Text = newText
	}
	lines[lineNumber-1] = renderCheckboxLine(cb)
	note.Content = strings.Join(lines, "\n")

	if err := g.notes.Save(workspacePath, note); err != nil {
		return fmt.Errorf("updating task line: %w", err)
	}
	g.log(workspacePath, "task:updated", map[string]any{
		"noteId": noteID,
		"line":   lineNumber,
		"status": string(status),
	})
	return nil
}

// UpdateTaskStatus locates the single checkbox line containing taskText and
// flips its marker. Zero matches fail with ErrTaskLineNotFound; more than
// one fail with ErrAmbiguousMatch; the caller must disambiguate rather
// than the engine guessing.
func (g *taskGraph) UpdateTaskStatus(workspacePath, noteID, taskText string, status models.TaskStatus) error {
	note, err := g.notes.Get(workspacePath, noteID)
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}

	lines := strings.Split(note.Content, "\n")
	matched := -1
	for i, line := range lines {
		cb, ok := ParseCheckboxLine(line)
		if !ok || !strings.Contains(cb.Text, taskText) {
			continue
		}
		if matched >= 0 {
			return fmt.Errorf("task text %q matches multiple lines in note %s: %w", taskText, noteID, ErrAmbiguousMatch)
		}
		matched = i
	}
	if matched < 0 {
		return fmt.Errorf("task text %q in note %s: %w", taskText, noteID, ErrTaskLineNotFound)
	}

	cb, _ := ParseCheckboxLine(lines[matched])
	cb.Status = status
	lines[matched] = renderCheckboxLine(cb)
	note.Content = strings.Join(lines, "\n")

	if err := g.notes.Save(workspacePath, note); err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}
	g.log(workspacePath, "task:updated", map[string]any{
		"noteId": noteID,
		"text":   taskText,
		"status": string(status),
	})
	return nil
}
