// Package output renders session views for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"taskdeck/internal/health"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
)

// Format selects how views are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Messages shown in place of the task list.
const (
	LoadingText = "Loading tasks..."
	EmptyText   = "No tasks yet. Add one above!"
)

// Status card labels.
const (
	APILabel      = "API Status"
	DatabaseLabel = "Database"
	CacheLabel    = "Redis Cache"
)

// ParseFormat validates a format name. An empty name selects text.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", name)
	}
}

// Render writes the whole view: status cards, error banner and task list.
func Render(w io.Writer, f Format, v session.View) error {
	if v.Tasks == nil {
		v.Tasks = []service.Task{}
	}
	switch f {
	case FormatJSON:
		return writeJSON(w, v)
	case FormatYAML:
		return writeYAML(w, v)
	}

	FormatStatus(w, v.Health)
	fmt.Fprintln(w)
	if v.Error != "" {
		FormatBanner(w, v.Error)
		fmt.Fprintln(w)
	}
	FormatTaskList(w, v.Tasks, v.Loading)
	return nil
}

// RenderFrame writes the n-th view of a stream, preceded by a separator for
// every frame after the first.
func RenderFrame(w io.Writer, f Format, v session.View, n int) error {
	if n > 0 {
		switch f {
		case FormatYAML:
			fmt.Fprintln(w, "---")
		case FormatText:
			fmt.Fprintln(w)
		}
	}
	return Render(w, f, v)
}

// RenderHealth writes only the status cards.
func RenderHealth(w io.Writer, f Format, state health.State) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, state)
	case FormatYAML:
		return writeYAML(w, state)
	}
	FormatStatus(w, state)
	return nil
}

// RenderTask writes a single task, as returned by add.
func RenderTask(w io.Writer, f Format, num int, task service.Task) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, task)
	case FormatYAML:
		return writeYAML(w, task)
	}
	FormatTask(w, num, task)
	return nil
}

// FormatStatus writes the three status cards.
// Format: "{LABEL:<11}  {ICON} {STATUS}\n"
func FormatStatus(w io.Writer, state health.State) {
	formatCard(w, APILabel, state.API)
	formatCard(w, DatabaseLabel, state.Database)
	formatCard(w, CacheLabel, state.Cache)
}

func formatCard(w io.Writer, label string, status health.Status) {
	fmt.Fprintf(w, "%-11s  %s %s\n", label, Icon(status), status)
}

// Icon returns the indicator for a subsystem status.
func Icon(status health.Status) string {
	switch status {
	case health.Connected:
		return "✓"
	case health.Error:
		return "✗"
	default:
		return "..."
	}
}

// FormatBanner writes the error banner line.
func FormatBanner(w io.Writer, message string) {
	fmt.Fprintf(w, "! %s\n", normalizeTitle(message))
}

// FormatTaskList writes the numbered task rows, or the loading or empty text.
func FormatTaskList(w io.Writer, tasks []service.Task, loading bool) {
	if loading {
		fmt.Fprintln(w, LoadingText)
		return
	}
	if len(tasks) == 0 {
		fmt.Fprintln(w, EmptyText)
		return
	}
	for i, task := range tasks {
		FormatTask(w, i+1, task)
	}
}

// FormatTask formats one task row.
// Format: "{N:>4}  [{x| }] {TITLE}\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	mark := " "
	if task.Completed {
		mark = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s\n", num, mark, normalizeTitle(task.Title))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// normalizeTitle normalizes a title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
