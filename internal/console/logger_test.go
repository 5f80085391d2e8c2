package console

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyledWritesOneLinePerMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewStyled(&buf, false)
	l.Infof("Start downloading video: %s\n", "https://x/video/1")
	l.Debugf("hidden")
	l.Warnf("Selected resolution: %s", "1920x1080")

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.Contains(t, out, "Start downloading video: https://x/video/1")
	assert.Contains(t, out, "Selected resolution: 1920x1080")
	assert.NotContains(t, out, "hidden")
}

func TestJSONLevelsAndSuccessAttribute(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSON(&buf, "warn")
	l.Infof("dropped")
	l.Errorf("remux failed: %d", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "remux failed: 1", rec["msg"])

	buf.Reset()
	l = NewJSON(&buf, "info")
	l.Successf("done")
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, true, rec["success"])
}
