package log_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/log"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}

	return out
}

func TestNewJSONCarriesServiceFields(t *testing.T) {
	var stderr, file bytes.Buffer

	l := log.New(configs.LogConfig{Level: "info", Format: configs.LogFormatJSON}, false, &stderr, &file)
	l.Info().Str("op", "upload").Msg("ledger updated")
	l.Debug().Msg("dropped")

	for _, buf := range []*bytes.Buffer{&stderr, &file} {
		lines := decodeLines(t, buf)
		require.Len(t, lines, 1)
		assert.Equal(t, log.ServiceName, lines[0]["service"])
		assert.Equal(t, configs.AppVersion, lines[0]["version"])
		assert.Equal(t, "upload", lines[0]["op"])
		assert.Equal(t, "ledger updated", lines[0]["message"])
	}
}

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	var stderr bytes.Buffer

	l := log.New(configs.LogConfig{Level: "loud", Format: configs.LogFormatJSON}, false, &stderr)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
	assert.Contains(t, stderr.String(), `invalid log level "loud"`)
}

func TestNewDebugAddsCaller(t *testing.T) {
	var stderr bytes.Buffer

	l := log.New(configs.LogConfig{Level: "debug", Format: configs.LogFormatJSON}, true, &stderr)
	l.Debug().Msg("reconcile page")

	lines := decodeLines(t, &stderr)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0]["caller"], "log_test.go")
}

func TestGinWriterLevels(t *testing.T) {
	var buf bytes.Buffer

	l := zerolog.New(&buf).Level(zerolog.DebugLevel)
	w := log.NewGinWriter(&l, zerolog.InfoLevel)

	_, err := w.Write([]byte("[GIN-debug] [WARNING] Running in \"debug\" mode.\n" +
		"[GIN-debug] GET /api/v1/storage/status --> handler (5 handlers)\n" +
		"\n" +
		"[GIN] 2026/03/14 - 15:04:05 | 200 | GET /healthz\n" +
		"plain line\n"))
	require.NoError(t, err)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)

	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, `Running in "debug" mode.`, lines[0]["message"])
	assert.Equal(t, "debug", lines[1]["level"])
	assert.True(t, strings.HasPrefix(lines[1]["message"].(string), "GET /api/v1/storage/status"))
	assert.Equal(t, "info", lines[2]["level"])
	assert.Equal(t, "info", lines[3]["level"])
	assert.Equal(t, "gin", lines[3]["source"])

	var errBuf bytes.Buffer

	el := zerolog.New(&errBuf)
	_, err = log.NewGinWriter(&el, zerolog.ErrorLevel).Write([]byte("panic recovered\n"))
	require.NoError(t, err)
	assert.Equal(t, "error", decodeLines(t, &errBuf)[0]["level"])
}
