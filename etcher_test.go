package etcher

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/etcher/config"
	"github.com/opd-ai/etcher/container"
	"github.com/opd-ai/etcher/frame"
)

func helloSettings() config.Settings {
	return config.Settings{BlockSize: 4, Threads: 1, Width: 64, Height: 64, FPS: 10, Mode: frame.ModeBinary}
}

func countFrames(t *testing.T, path string) int {
	t.Helper()
	r, err := container.Open(path, container.Options{})
	require.NoError(t, err)
	defer r.Close()

	n := 0
	for {
		_, err := r.Next()
		if err != nil {
			break
		}
		n++
	}
	return n
}

func TestEmbedDislodge_HelloWorld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.avi")
	payload := []byte("hello world")

	report, err := Embed(context.Background(), path, payload, helloSettings(), NewOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Frames)
	assert.Equal(t, len(payload), report.Bytes)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, Digest(payload), report.Digest)

	assert.Equal(t, 2, countFrames(t, path))

	out, err := Dislodge(context.Background(), path, NewOptions())
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestEmbedDislodge_RoundTrip(t *testing.T) {
	data := make([]byte, 20000)
	rand.New(rand.NewSource(42)).Read(data)

	tests := []struct {
		name     string
		preset   string
		backend  string
		codec    string
		filename string
	}{
		{"optimal avi png", config.PresetOptimal, "", "", "out.avi"},
		{"paranoid avi dib", config.PresetParanoid, "", "DIB ", "out.avi"},
		{"max efficiency avi", config.PresetMaxEfficiency, "", "", "out.avi"},
		{"paranoid image sequence", config.PresetParanoid, "", "", "frames"},
		{"optimal image sequence png", config.PresetOptimal, container.BackendImageSeq, "PNG ", "seq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := config.FromPreset(tt.preset)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), tt.filename)
			opts := NewOptions()
			opts.Container.Backend = tt.backend
			opts.Container.Codec = tt.codec

			_, err = Embed(context.Background(), path, data, settings, opts)
			require.NoError(t, err)

			out, err := Dislodge(context.Background(), path, opts)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestEmbed_Progress(t *testing.T) {
	settings := helloSettings()
	settings.Threads = 4

	var etched, written atomic.Int32
	opts := NewOptions()
	opts.FrameProgress = func(int, int) { etched.Add(1) }
	opts.WriteProgress = func(int, int) { written.Add(1) }

	data := make([]byte, 200) // 1600 bits over 256-bit frames
	report, err := Embed(context.Background(), filepath.Join(t.TempDir(), "p.avi"), data, settings, opts)
	require.NoError(t, err)

	assert.Equal(t, int32(7), etched.Load())
	assert.Equal(t, int32(report.Frames), written.Load())
}

func TestEmbed_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty payload", func(t *testing.T) {
		path := filepath.Join(dir, "empty.avi")
		_, err := Embed(context.Background(), path, nil, helloSettings(), NewOptions())
		assert.ErrorIs(t, err, ErrEmptyInput)
		_, statErr := os.Stat(path)
		assert.True(t, errors.Is(statErr, os.ErrNotExist))
	})

	t.Run("indivisible resolution", func(t *testing.T) {
		s := helloSettings()
		s.Width = 66
		_, err := Embed(context.Background(), filepath.Join(dir, "bad.avi"), []byte("x"), s, NewOptions())
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("unknown backend", func(t *testing.T) {
		opts := NewOptions()
		opts.Container.Backend = "betamax"
		_, err := Embed(context.Background(), filepath.Join(dir, "x.avi"), []byte("x"), helloSettings(), opts)
		assert.ErrorIs(t, err, ErrContainerOpen)
		assert.ErrorIs(t, err, ErrUnknownBackend)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Embed(ctx, filepath.Join(dir, "c.avi"), []byte("x"), helloSettings(), NewOptions())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDislodge_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Dislodge(context.Background(), filepath.Join(dir, "missing.avi"), NewOptions())
	assert.ErrorIs(t, err, ErrContainerRead)

	junk := filepath.Join(dir, "junk.avi")
	require.NoError(t, os.WriteFile(junk, []byte("RIFF\x00\x00\x00\x00WAVE"), 0o644))
	_, err = Dislodge(context.Background(), junk, NewOptions())
	assert.ErrorIs(t, err, ErrContainerRead)
}

func TestRipAndWriteBytes(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(src, []byte{1, 2, 3}, 0o644))

	data, err := RipBytes(src)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	dst := filepath.Join(dir, "out.bin")
	require.NoError(t, WriteBytes(dst, data))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = RipBytes(empty)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = RipBytes(dir)
	assert.Error(t, err)

	assert.Error(t, WriteBytes(filepath.Join(dir, "no", "such", "dir"), data))
}

func TestDigest(t *testing.T) {
	assert.Len(t, Digest([]byte("hello world")), 64)
	assert.Equal(t, Digest([]byte("a")), Digest([]byte("a")))
	assert.NotEqual(t, Digest([]byte("a")), Digest([]byte("b")))
}
