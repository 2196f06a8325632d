package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFieldsPairsKeysAndValues(t *testing.T) {
	entry := WithFields("tx", "ABC", "attempt", 2)
	assert.Equal(t, "ABC", entry.Data["tx"])
	assert.Equal(t, 2, entry.Data["attempt"])
}

func TestWithFieldsSkipsNonStringKeys(t *testing.T) {
	entry := WithFields(42, "value", "ok", true)
	assert.Len(t, entry.Data, 1)
	assert.Equal(t, true, entry.Data["ok"])
}

func TestSetLoggerJSON(t *testing.T) {
	defer logrus.SetFormatter(&logrus.TextFormatter{})
	require.NoError(t, SetLogger(LevelInfo, true, false))

	var buf bytes.Buffer
	SetOutput(&buf)
	Info("verified", "tx", "DEAD")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "verified", line["msg"])
	assert.Equal(t, "DEAD", line["tx"])
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	assert.Error(t, SetLevel("chatty"))
}
