package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
)

func TestNew_JSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: "json"}, &buf)

	l.Info("dropped")
	l.Warn("kept", "k", "v")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestWithContext_AddsRequestScopedFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json"}, &buf)

	ctx := common.WithRequestID(context.Background(), "req-1")
	ctx = common.WithFileName(ctx, "계약서.pdf")
	WithContext(ctx, base).Info("hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "계약서.pdf", rec["file_name"])
}

func TestWithContext_NoValues(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json"}, &buf)
	WithContext(context.Background(), base).Info("plain")
	assert.NotContains(t, buf.String(), "request_id")
}
