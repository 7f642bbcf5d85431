package slogpretty

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrettyHandler_Output(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}
	log := slog.New(opts.NewPrettyHandler(&buf))

	log.With(slog.String("op", "service.Checkout")).
		Error("failed to create order", slog.Any("error", errors.New("permission denied")))

	out := buf.String()
	assert.Contains(t, out, "ERROR:")
	assert.Contains(t, out, "failed to create order")
	assert.Contains(t, out, `"op": "service.Checkout"`)
	assert.Contains(t, out, `"error": "permission denied"`)
}

func TestPrettyHandler_Level(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelInfo}}
	log := slog.New(opts.NewPrettyHandler(&buf))

	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Info("visible")
	assert.Contains(t, buf.String(), "INFO:")
}
