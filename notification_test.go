package xltransform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotification_String(t *testing.T) {
	n := Notification{Severity: SeverityWarning, Row: 3, ColumnName: "Amount", Cell: "C3", Message: "bad value"}
	assert.Equal(t, "[WARN] row 3 Amount (C3): bad value", n.String())

	n = Notification{Severity: SeverityInfo, Message: "run reading"}
	assert.Equal(t, "[INFO]: run reading", n.String())
	assert.Equal(t, "UNKNOWN", Severity(9).String())
}

func TestCollector(t *testing.T) {
	var c Collector
	c.Observe(Notification{Type: NoteCell, Severity: SeverityError})
	c.Observe(Notification{Type: NoteProgress, Severity: SeverityInfo})
	c.Observe(Notification{Type: NoteCell, Severity: SeverityWarning})

	assert.Len(t, c.Filter(NoteCell), 2)
	assert.Empty(t, c.Filter(NoteSummary))
	assert.Equal(t, 1, c.Count(SeverityError))
	assert.Equal(t, 1, c.Count(SeverityInfo))
}

func TestChannelObserver(t *testing.T) {
	ch := make(chan Notification, 1)
	ChannelObserver(ch)(Notification{Message: "hi"})
	assert.Equal(t, "hi", (<-ch).Message)
}
