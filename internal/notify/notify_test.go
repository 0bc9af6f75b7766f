package notify

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogUsesSeverityLevel(t *testing.T) {
	var buf bytes.Buffer
	n := NewLog(zerolog.New(&buf))

	n.Notify("no space left for a new cut", Warning)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"severity":"warning"`)
	assert.Contains(t, buf.String(), "no space left for a new cut")

	buf.Reset()
	n.Notify("export failed", Error)
	assert.Contains(t, buf.String(), `"level":"error"`)

	buf.Reset()
	n.Notify("export finished", Success)
	assert.Contains(t, buf.String(), `"level":"info"`)
	assert.Contains(t, buf.String(), `"severity":"success"`)
}

func TestMultiSkipsNil(t *testing.T) {
	var got []string
	rec := Func(func(msg string, sev Severity) {
		got = append(got, sev.String()+":"+msg)
	})

	Multi(nil, rec, rec).Notify("hello", Info)
	assert.Equal(t, []string{"info:hello", "info:hello"}, got)
}

func TestOrDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		OrDiscard(nil).Notify("ignored", Error)
	})
}
