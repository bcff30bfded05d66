package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryLoggerSequence(t *testing.T) {
	l := NewMemoryLogger()
	l.Log(NewRoundEvent(1, "The printing press"))
	l.Log(NewTurnEvent(1, 1, 0, "Ann"))
	l.Log(NewRulingEvent(1, 1, "Evaluating", 0, "Ann", "Telegraph", true, 10, "clear link"))

	events := l.Events()
	if len(events) != 3 {
		t.Fatalf("got %d events", len(events))
	}
	for i, e := range events {
		if e.Seq != i+1 {
			t.Errorf("event %d has seq %d", i, e.Seq)
		}
	}
	if got := l.EventsOfType(EventApproved); len(got) != 1 || got[0].Card != "Telegraph" {
		t.Errorf("approved events = %+v", got)
	}
	if l.LastEvent().Type != EventApproved {
		t.Errorf("last event = %v", l.LastEvent().Type)
	}

	// Events returns a copy.
	events[0].Details = "changed"
	if l.Events()[0].Details == "changed" {
		t.Error("Events exposed internal storage")
	}
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewTextLogger(&buf)
	l.Log(NewHandoffEvent(2, 5, 1, "Ben"))
	l.Log(NewRejectedEvent(2, 5, "Player Handoff", 0, "waiting for Ben"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "R2 T5 ") || !strings.Contains(lines[0], "Ben") {
		t.Errorf("line = %q", lines[0])
	}
	if len(l.Events()) != 2 {
		t.Errorf("text logger kept %d events", len(l.Events()))
	}
	if FormatAll(l.Events()) != buf.String() {
		t.Error("FormatAll does not match the written log")
	}
}

func TestEventTypeNames(t *testing.T) {
	if EventRejected.String() != "Rejected" || EventHandoffAck.String() != "HandoffAck" {
		t.Error("unexpected event type names")
	}
	if EventType(999).String() != "Unknown" {
		t.Error("unknown event type should say so")
	}
}
