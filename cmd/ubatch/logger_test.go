package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	assert := assert.New(t)

	stderr := &bytes.Buffer{}
	record := &bytes.Buffer{}

	logger := newLogger(stderr, record, false)
	logger.Debug("hidden")
	logger.Info("[kernel] Loading app_0", "app", 0)

	assert.NotContains(stderr.String(), "hidden")
	assert.Equal(stderr.String(), record.String())

	var entry map[string]any
	assert.NoError(json.Unmarshal([]byte(strings.TrimSpace(record.String())), &entry))
	assert.Equal("[kernel] Loading app_0", entry["msg"])
	assert.Equal(float64(0), entry["app"])
}

func TestNewLoggerVerbose(t *testing.T) {
	assert := assert.New(t)

	stderr := &bytes.Buffer{}
	logger := newLogger(stderr, nil, true)
	logger.Debug("hart", "pc", 0x80400000)

	assert.Contains(stderr.String(), `"msg":"hart"`)
}
