package engine

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/piwi3910/platecut/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_SilentByDefault(t *testing.T) {
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}

func TestLogger_TraceFronts(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	params := model.DefaultParams()
	problem := mustProblem(t, []model.Item{{ID: 1, Width: 500, Height: 300}}, nil, params)
	opts := model.DefaultOptions()
	opts.TraceFronts = true

	_, stats, err := New(params, opts).Pack(context.Background(), Request{Problem: problem})
	require.NoError(t, err)
	assert.Equal(t, StateDone, stats.State)

	out := buf.String()
	assert.Contains(t, out, "plate packed")
	assert.Contains(t, out, "cut front")
	assert.Contains(t, out, "plate front")
}

func TestLogger_NilRestoresSilence(t *testing.T) {
	SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	SetLogger(nil)
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}

func TestLogger_InvariantViolationIsError(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})))
	defer SetLogger(nil)

	p := New(model.DefaultParams(), model.DefaultOptions())
	err := p.abort(&InvariantError{Layer: "cut", Msg: "row end does not advance"})

	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "cut", ie.Layer)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "packing aborted")

	assert.Panics(t, func() { _ = p.abort("not an invariant") })
}
