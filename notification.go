package xltransform

import (
	"fmt"
	"strings"
)

// Severity indicates the severity of a notification or validation issue.
type Severity int

const (
	SeverityInfo    Severity = iota // progress and state changes
	SeverityWarning                 // value was silently normalized
	SeverityError                   // value could not be resolved as given
)

// String returns the short label used in formatted output.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// NotificationType tells observers what a notification is about.
type NotificationType string

const (
	NoteCell     NotificationType = "cell"
	NoteProgress NotificationType = "progress"
	NoteState    NotificationType = "state"
	NoteSummary  NotificationType = "summary"
)

// Notification is a single progress or diagnostic event emitted during a run.
type Notification struct {
	Severity   Severity
	Type       NotificationType
	Code       ErrorKind // empty for progress and state events
	Message    string
	Row        int    // 1-based sheet row; 0 when not row specific
	Column     int    // template column position; 0 when not column specific
	ColumnName string
	Cell       string // output cell address, e.g. "C12"
	State      State
	RowsDone   int
}

// String formats the notification as "[WARN] row 3 Amount (C3): message".
func (n Notification) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", n.Severity)
	if n.Row > 0 {
		fmt.Fprintf(&b, " row %d", n.Row)
	}
	if n.ColumnName != "" {
		fmt.Fprintf(&b, " %s", n.ColumnName)
	}
	if n.Cell != "" {
		fmt.Fprintf(&b, " (%s)", n.Cell)
	}
	b.WriteString(": ")
	b.WriteString(n.Message)
	return b.String()
}

// Observer receives notifications synchronously, in row-then-column order.
// It must not block for long: the run waits for it.
type Observer func(Notification)

// ChannelObserver forwards notifications to ch. The send blocks, so ch must
// be drained for the whole run.
func ChannelObserver(ch chan<- Notification) Observer {
	return func(n Notification) { ch <- n }
}

// Collector is an Observer sink that keeps every notification.
type Collector struct {
	Notes []Notification
}

// Observe appends n.
func (c *Collector) Observe(n Notification) {
	c.Notes = append(c.Notes, n)
}

// Filter returns the collected notifications of the given type.
func (c *Collector) Filter(t NotificationType) []Notification {
	var out []Notification
	for _, n := range c.Notes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Count returns how many collected notifications have the given severity.
func (c *Collector) Count(sev Severity) int {
	n := 0
	for _, note := range c.Notes {
		if note.Severity == sev {
			n++
		}
	}
	return n
}
