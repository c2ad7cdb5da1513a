package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Debug().Str("group_id", "g1").Msg("hello")

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Contains(t, buf.String(), `"group_id":"g1"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "loud", Output: &buf})

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}
