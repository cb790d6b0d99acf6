package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerFormat(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(&out, nil)
	when := time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)

	record := slog.NewRecord(when, slog.LevelInfo, "Pass done", 0)
	record.AddAttrs(slog.String("module", "pipeline"))
	require.NoError(t, h.Handle(context.Background(), record))

	record = slog.NewRecord(when, slog.LevelWarn, "odd buffer", 0)
	require.NoError(t, h.WithAttrs([]slog.Attr{slog.Int("pass", 3)}).Handle(context.Background(), record))

	assert.Equal(t, "[2024/03/05 14:07:09] [pipeline] Pass done\n[2024/03/05 14:07:09] [WARN] [3] odd buffer\n", out.String())
}

func TestHandlerLevel(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
	assert.True(t, NewHandler(&bytes.Buffer{}, nil).Enabled(context.Background(), slog.LevelInfo))
}
