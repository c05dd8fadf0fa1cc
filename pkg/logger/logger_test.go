package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONConServicioYComponente(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "debug", Service: "api", Output: &buf})

	zl := l.Component("stock")
	zl.Info().Str("shop_id", "s1").Msg("venta")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "api", line["service"])
	assert.Equal(t, "stock", line["component"])
	assert.Equal(t, "s1", line["shop_id"])
	assert.Equal(t, "info", line["level"])
}

func TestNew_NivelFiltra(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "warn", Output: &buf})

	l.Info().Msg("descartado")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("visible")
	assert.NotZero(t, buf.Len())
}
