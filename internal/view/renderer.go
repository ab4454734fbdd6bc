// Package view renders a mirror snapshot as text. The same snapshot can be
// shown as a list, a kanban board, dashboard statistics or the recent
// activity feed; the caller picks the mode explicitly.
package view

import (
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kazz187/taskboard/internal/mirror"
	"github.com/kazz187/taskboard/internal/task"
)

type Mode string

const (
	ModeList     Mode = "list"
	ModeBoard    Mode = "board"
	ModeStats    Mode = "stats"
	ModeActivity Mode = "activity"
)

var Modes = []Mode{ModeList, ModeBoard, ModeStats, ModeActivity}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", s)
}

type Renderer struct {
	w     io.Writer
	color bool
	now   func() time.Time
}

type Option func(*Renderer)

func WithColor(c bool) Option {
	return func(r *Renderer) {
		r.color = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

func NewRenderer(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, color: !color.NoColor, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes snap in the given mode. f only applies to ModeList.
func (r *Renderer) Render(mode Mode, snap mirror.Snapshot, f Filter) error {
	switch mode {
	case ModeList:
		return r.renderList(snap.Tasks, f)
	case ModeBoard:
		return r.renderBoard(snap.Tasks)
	case ModeStats:
		return r.renderStats(snap.Tasks)
	case ModeActivity:
		return r.renderActivity(snap.Activity)
	default:
		return fmt.Errorf("unknown view %q", mode)
	}
}

func (r *Renderer) paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if r.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (r *Renderer) renderList(tasks []*task.Task, f Filter) error {
	tasks = List(tasks, f)
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(r.w, r.paint("No tasks found", color.Faint))
		return err
	}
	var b strings.Builder
	for _, t := range tasks {
		r.writeTaskLine(&b, t, true)
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *Renderer) renderBoard(tasks []*task.Task) error {
	var b strings.Builder
	for i, col := range Board(tasks) {
		if i > 0 {
			b.WriteString("\n")
		}
		header := fmt.Sprintf("%s (%d)", strings.ToUpper(col.Status.Label()), col.Count())
		b.WriteString(r.paint(header, color.Bold, statusColor(col.Status)))
		b.WriteString("\n")
		for _, t := range col.Tasks {
			b.WriteString("  ")
			r.writeTaskLine(&b, t, false)
		}
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *Renderer) renderStats(tasks []*task.Task) error {
	s := ComputeStats(tasks)
	_, err := fmt.Fprintf(r.w, "Total: %s  Pending: %s  In progress: %s  Completed: %s\n",
		r.paint(fmt.Sprint(s.Total), color.Bold),
		r.paint(fmt.Sprint(s.Pending), statusColor(task.StatusPending)),
		r.paint(fmt.Sprint(s.InProgress), statusColor(task.StatusInProgress)),
		r.paint(fmt.Sprint(s.Completed), statusColor(task.StatusCompleted)),
	)
	return err
}

func (r *Renderer) renderActivity(entries []mirror.ActivityEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(r.w, r.paint("No recent activity", color.Faint))
		return err
	}
	now := r.now()
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: %s %s\n", e.Action, e.TaskTitle, r.paint("("+TimeAgo(now, e.Timestamp)+")", color.Faint))
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *Renderer) writeTaskLine(b *strings.Builder, t *task.Task, withStatus bool) {
	if withStatus {
		label := fmt.Sprintf("%-12s", "["+t.Status.Label()+"]")
		b.WriteString(r.paint(label, statusColor(t.Status)))
		b.WriteString(" ")
	}
	b.WriteString(r.paint(t.Title, color.Bold))
	b.WriteString(" ")
	b.WriteString(r.paint(string(t.Priority), priorityColor(t.Priority)))
	if t.Assignee != "" {
		b.WriteString(" " + r.paint("@"+t.Assignee, assigneeColor(t.Assignee)))
	}
	if t.DueDate != "" {
		b.WriteString(" due " + t.DueDate)
	}
	b.WriteString(" " + r.paint(t.ID, color.Faint))
	b.WriteString("\n")
}

func statusColor(s task.Status) color.Attribute {
	switch s {
	case task.StatusInProgress:
		return color.FgCyan
	case task.StatusCompleted:
		return color.FgGreen
	default:
		return color.FgYellow
	}
}

func priorityColor(p task.Priority) color.Attribute {
	switch p {
	case task.PriorityHigh:
		return color.FgRed
	case task.PriorityLow:
		return color.FgGreen
	default:
		return color.FgYellow
	}
}

var assigneePalette = []color.Attribute{
	color.FgHiRed,
	color.FgHiGreen,
	color.FgHiYellow,
	color.FgHiBlue,
	color.FgHiMagenta,
	color.FgHiCyan,
	color.FgBlue,
	color.FgMagenta,
}

// assigneeColor gives each assignee a stable color across redraws.
func assigneeColor(name string) color.Attribute {
	h := fnv.New32a()
	h.Write([]byte(name))
	return assigneePalette[h.Sum32()%uint32(len(assigneePalette))]
}
