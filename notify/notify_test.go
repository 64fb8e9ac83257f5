package notify

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalWritesMessages(t *testing.T) {
	var buf bytes.Buffer
	n := NewTerminal(&buf)

	n.Success("Calendar disconnected")
	n.Error("Failed to load sessions", errors.New("connection refused"))

	out := buf.String()
	assert.Contains(t, out, "Calendar disconnected")
	assert.Contains(t, out, "Failed to load sessions")
	assert.Contains(t, out, "connection refused")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Success("ok")
	r.Error("bad", errors.New("boom"))

	assert.Len(t, r.Entries(), 2)
	errs := r.Errors()
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "bad", errs[0].Message)
		assert.EqualError(t, errs[0].Err, "boom")
	}
}
