package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	log.Debug("hidden")
	log.Info("visible", "pincode", "110001")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "visible", line["msg"])
	assert.Equal(t, "110001", line["pincode"])
}

func TestNewWithWriter_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "DEBUG", "text")

	log.Debug("verbose")
	assert.Contains(t, buf.String(), "msg=verbose")
}
