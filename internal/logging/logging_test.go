package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	root := Init(Options{JSON: true, Out: &buf})

	logger := WithComponent(root, "export")
	logger.Debug().Msg("hidden")
	logger.Info().Float64("duration", 8).Msg("export finished")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "export", line["component"])
	assert.Equal(t, "export finished", line["message"])
	assert.Equal(t, 8.0, line["duration"])
}

func TestInitSetsGlobalLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	Init(Options{JSON: true, Out: &buf})

	log.Info().Msg("global")
	assert.Contains(t, buf.String(), `"message":"global"`)
}

func TestInitVerboseConsole(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	logger := Init(Options{Verbose: true, Out: &buf})
	logger.Debug().Msg("tick")
	assert.Contains(t, buf.String(), "tick")
}

func TestWithComponentKeepsParentFields(t *testing.T) {
	var buf bytes.Buffer
	parent := zerolog.New(&buf).With().Str("video", "talk.mp4").Logger()

	logger := WithComponent(parent, "playback")
	logger.Info().Msg("play")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "playback", line["component"])
	assert.Equal(t, "talk.mp4", line["video"])
}
