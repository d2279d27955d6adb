package sequencer

import (
	"context"
	"image"
	"io"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/etcher/config"
	"github.com/opd-ai/etcher/container"
	"github.com/opd-ai/etcher/frame"
	"github.com/opd-ai/etcher/instruction"
	"github.com/opd-ai/etcher/limits"
)

// sliceReader replays frames held in memory.
type sliceReader struct {
	frames []image.Image
	next   int
}

func (r *sliceReader) Next() (image.Image, error) {
	if r.next >= len(r.frames) {
		return nil, io.EOF
	}
	img := r.frames[r.next]
	r.next++
	return img, nil
}

func (r *sliceReader) Close() error { return nil }

func readerFor(frames []*frame.Buffer) *sliceReader {
	imgs := make([]image.Image, len(frames))
	for i, f := range frames {
		imgs[i] = f.Image()
	}
	return &sliceReader{frames: imgs}
}

func testSettings(mode frame.Mode, threads int) config.Settings {
	return config.Settings{
		BlockSize: 3,
		Threads:   threads,
		Width:     60,
		Height:    60,
		FPS:       10,
		Mode:      mode,
	}
}

func randomBytes(t *testing.T, n int, seed int64) []byte {
	t.Helper()
	data := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(data)
	return data
}

func encode(t *testing.T, s config.Settings, data []byte) []*frame.Buffer {
	t.Helper()
	enc, err := NewEncoder(s)
	require.NoError(t, err)
	frames, err := enc.Encode(context.Background(), PayloadFromBytes(s.Mode, data))
	require.NoError(t, err)
	return frames
}

func TestNewPlan(t *testing.T) {
	tests := []struct {
		name      string
		settings  config.Settings
		mode      frame.Mode
		units     int
		wantPlan  Plan
		wantError error
	}{
		{
			name:     "hello world binary",
			settings: config.Settings{BlockSize: 4, Threads: 1, Width: 64, Height: 64, FPS: 10},
			mode:     frame.ModeBinary,
			units:    88,
			wantPlan: Plan{Mode: frame.ModeBinary, FrameUnits: 256, TotalUnits: 88, TotalFrames: 1,
				ChunkFrames: 2, ChunkUnits: 512, Chunks: 1, FinalFrame: 0, FinalCount: 88},
		},
		{
			name:     "exact multiple",
			settings: config.Settings{BlockSize: 4, Threads: 8, Width: 64, Height: 64, FPS: 10},
			mode:     frame.ModeBinary,
			units:    512,
			wantPlan: Plan{Mode: frame.ModeBinary, FrameUnits: 256, TotalUnits: 512, TotalFrames: 2,
				ChunkFrames: 1, ChunkUnits: 256, Chunks: 2, FinalFrame: 1, FinalCount: 256},
		},
		{
			name:     "color spread over threads",
			settings: config.Settings{BlockSize: 4, Threads: 2, Width: 64, Height: 64, FPS: 10},
			mode:     frame.ModeColor,
			units:    3000,
			wantPlan: Plan{Mode: frame.ModeColor, FrameUnits: 768, TotalUnits: 3000, TotalFrames: 4,
				ChunkFrames: 3, ChunkUnits: 2304, Chunks: 2, FinalFrame: 3, FinalCount: 696},
		},
		{
			name:      "empty",
			settings:  config.Settings{BlockSize: 4, Threads: 1, Width: 64, Height: 64, FPS: 10},
			mode:      frame.ModeBinary,
			units:     0,
			wantError: limits.ErrEmptyInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPlan(tt.settings, tt.mode, tt.units)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlan, p)
			assert.LessOrEqual(t, p.Chunks, tt.settings.Threads)
		})
	}
}

func TestEncode_HelloWorldScenario(t *testing.T) {
	s := config.Settings{BlockSize: 4, Threads: 1, Width: 64, Height: 64, FPS: 10, Mode: frame.ModeBinary}
	frames := encode(t, s, []byte("hello world"))
	require.Len(t, frames, 2)

	h, err := instruction.Parse(frames[0])
	require.NoError(t, err)
	assert.Equal(t, frame.ModeBinary, h.Mode)
	assert.Equal(t, uint32(0), h.FinalFrame)
	assert.Equal(t, uint32(88), h.FinalCount)
	assert.Equal(t, uint32(4), h.BlockSize)

	out, err := NewDecoder().Decode(context.Background(), readerFor(frames))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), out)
}

func TestEncode_OrderIndependentOfThreads(t *testing.T) {
	for _, mode := range []frame.Mode{frame.ModeBinary, frame.ModeColor} {
		t.Run(mode.String(), func(t *testing.T) {
			data := randomBytes(t, 4000, 7)

			single := encode(t, testSettings(mode, 1), data)
			parallel := encode(t, testSettings(mode, 8), data)

			require.Equal(t, len(single), len(parallel))
			for i := range single {
				assert.Equal(t, single[i].Image().Pix, parallel[i].Image().Pix, "frame %d differs", i)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		mode    frame.Mode
		size    int
		threads int
	}{
		{"binary one byte", frame.ModeBinary, 1, 1},
		{"binary many frames", frame.ModeBinary, 1000, 4},
		{"binary more threads than frames", frame.ModeBinary, 120, 16},
		{"color one byte", frame.ModeColor, 1, 1},
		{"color partial block", frame.ModeColor, 1201, 3},
		{"color many frames", frame.ModeColor, 5000, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := randomBytes(t, tt.size, int64(tt.size))
			frames := encode(t, testSettings(tt.mode, tt.threads), data)

			out, err := NewDecoder().Decode(context.Background(), readerFor(frames))
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestEncode_ExactMultipleBoundary(t *testing.T) {
	// 60x60 at block 3 holds 400 bits, so 100 bytes fill exactly two frames.
	s := testSettings(frame.ModeBinary, 2)
	data := randomBytes(t, 100, 3)
	frames := encode(t, s, data)
	require.Len(t, frames, 3)

	h, err := instruction.Parse(frames[0])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), h.FinalFrame)
	assert.Equal(t, uint32(400), h.FinalCount)

	out, err := NewDecoder().Decode(context.Background(), readerFor(frames))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestEncode_EmptyInput(t *testing.T) {
	enc, err := NewEncoder(testSettings(frame.ModeBinary, 4))
	require.NoError(t, err)

	var called atomic.Int32
	enc.OnProgress(func(int, int) { called.Add(1) })

	_, err = enc.Encode(context.Background(), PayloadFromBytes(frame.ModeBinary, nil))
	assert.ErrorIs(t, err, limits.ErrEmptyInput)
	assert.Zero(t, called.Load())
}

func TestEncode_ModeMismatch(t *testing.T) {
	enc, err := NewEncoder(testSettings(frame.ModeBinary, 1))
	require.NoError(t, err)

	_, err = enc.Encode(context.Background(), ColorPayload([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestEncode_Cancelled(t *testing.T) {
	enc, err := NewEncoder(testSettings(frame.ModeBinary, 4))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = enc.Encode(ctx, PayloadFromBytes(frame.ModeBinary, randomBytes(t, 500, 1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncode_Progress(t *testing.T) {
	enc, err := NewEncoder(testSettings(frame.ModeBinary, 4))
	require.NoError(t, err)

	var calls, last atomic.Int64
	enc.OnProgress(func(done, total int) {
		calls.Add(1)
		assert.Equal(t, 20, total)
		if int64(done) > last.Load() {
			last.Store(int64(done))
		}
	})

	frames, err := enc.Encode(context.Background(), PayloadFromBytes(frame.ModeBinary, randomBytes(t, 1000, 2)))
	require.NoError(t, err)
	assert.Len(t, frames, 21)
	assert.Equal(t, int64(20), calls.Load())
	assert.Equal(t, int64(20), last.Load())
}

func TestNewEncoder_InvalidSettings(t *testing.T) {
	s := testSettings(frame.ModeBinary, 1)
	s.Width = 61
	_, err := NewEncoder(s)
	assert.ErrorIs(t, err, frame.ErrDimensionMismatch)
}

func TestRunWorker_PanicBecomesFailure(t *testing.T) {
	// A frame smaller than one block can never consume a unit.
	e := &Encoder{settings: config.Settings{BlockSize: 4, Threads: 1, Width: 2, Height: 2, FPS: 10}}

	frames, err := e.runWorker(context.Background(), 0, BinaryPayload([]bool{true}), func() {})
	assert.ErrorIs(t, err, ErrWorkerFailure)
	assert.Nil(t, frames)
}

func TestDecode_Errors(t *testing.T) {
	s := testSettings(frame.ModeBinary, 2)
	frames := encode(t, s, randomBytes(t, 200, 9))
	require.Len(t, frames, 5)

	t.Run("no frames", func(t *testing.T) {
		_, err := NewDecoder().Decode(context.Background(), &sliceReader{})
		assert.ErrorIs(t, err, container.ErrContainerRead)
	})

	t.Run("missing data frames", func(t *testing.T) {
		r := readerFor(frames[:3])
		_, err := NewDecoder().Decode(context.Background(), r)
		assert.ErrorIs(t, err, container.ErrContainerRead)
	})

	t.Run("blank header", func(t *testing.T) {
		blank, err := frame.New(s.BlockSize, s.Width, s.Height)
		require.NoError(t, err)
		_, err = NewDecoder().Decode(context.Background(), readerFor([]*frame.Buffer{blank}))
		assert.ErrorIs(t, err, instruction.ErrHeaderDecode)
	})

	t.Run("data frame size differs", func(t *testing.T) {
		odd, err := frame.New(s.BlockSize, 30, 60)
		require.NoError(t, err)
		r := readerFor([]*frame.Buffer{frames[0], odd})
		_, err = NewDecoder().Decode(context.Background(), r)
		assert.ErrorIs(t, err, frame.ErrDimensionMismatch)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewDecoder().Decode(ctx, readerFor(frames))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDecode_IgnoresTrailingFrames(t *testing.T) {
	s := testSettings(frame.ModeColor, 2)
	data := randomBytes(t, 1500, 4)
	frames := encode(t, s, data)

	extra, err := frame.New(s.BlockSize, s.Width, s.Height)
	require.NoError(t, err)
	frames = append(frames, extra)

	r := readerFor(frames)
	out, err := NewDecoder().Decode(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.Equal(t, len(frames)-1, r.next, "trailing frame must not be read")
}

func TestDecode_Progress(t *testing.T) {
	frames := encode(t, testSettings(frame.ModeBinary, 1), randomBytes(t, 120, 5))

	var got []int
	d := NewDecoder()
	d.OnProgress(func(done, total int) {
		got = append(got, done)
		assert.Equal(t, 3, total)
	})

	_, err := d.Decode(context.Background(), readerFor(frames))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
}
