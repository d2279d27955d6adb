package sequencer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/etcher/config"
	"github.com/opd-ai/etcher/frame"
	"github.com/opd-ai/etcher/instruction"
)

// ProgressFunc receives the number of frames finished so far and the total
// expected. Encoder workers call it concurrently.
type ProgressFunc func(done, total int)

// outcome is the result of etching one frame from a chunk.
type outcome uint8

const (
	// moreData means the frame is full and the chunk has units left.
	moreData outcome = iota
	// chunkExhausted means the chunk ran out inside (or exactly at the end
	// of) the frame just etched.
	chunkExhausted
)

// Encoder generates the frame sequence for a payload.
type Encoder struct {
	settings config.Settings
	progress ProgressFunc
}

// NewEncoder creates an encoder for validated settings.
func NewEncoder(settings config.Settings) (*Encoder, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{settings: settings}, nil
}

// OnProgress registers a callback invoked after each data frame is etched.
func (e *Encoder) OnProgress(fn ProgressFunc) {
	e.progress = fn
}

// Settings returns the encoder settings.
func (e *Encoder) Settings() config.Settings {
	return e.settings
}

// Encode etches payload into frames. The returned slice starts with the
// instruction frame followed by every data frame in payload order.
//
// An empty payload fails with limits.ErrEmptyInput before any worker
// starts. A panicking worker is reported as ErrWorkerFailure. Cancelling ctx
// stops workers at their next frame boundary.
func (e *Encoder) Encode(ctx context.Context, payload Payload) ([]*frame.Buffer, error) {
	start := time.Now()

	if payload.Mode() != e.settings.Mode {
		return nil, fmt.Errorf("%w: payload mode %s, settings mode %s", ErrInvalidPayload, payload.Mode(), e.settings.Mode)
	}

	plan, err := NewPlan(e.settings, payload.Mode(), payload.Len())
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Encoder.Encode",
			"units":    payload.Len(),
			"error":    err.Error(),
		}).Error("Cannot plan frame layout")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":     "Encoder.Encode",
		"mode":         plan.Mode,
		"total_units":  plan.TotalUnits,
		"frame_units":  plan.FrameUnits,
		"total_frames": plan.TotalFrames,
		"chunk_frames": plan.ChunkFrames,
		"chunks":       plan.Chunks,
		"threads":      e.settings.Threads,
	}).Info("Etching frames")

	var done atomic.Int64
	results := make([][]*frame.Buffer, plan.Chunks)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < plan.Chunks; i++ {
		i := i // per-iteration copy (pre-Go 1.22 loop semantics)
		lo, hi := plan.chunkBounds(i)
		chunk := payload.slice(lo, hi)

		g.Go(func() error {
			frames, err := e.runWorker(gctx, i, chunk, func() {
				n := done.Add(1)
				if e.progress != nil {
					e.progress(int(n), plan.TotalFrames)
				}
			})
			if err != nil {
				return err
			}
			results[i] = frames
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Encoder.Encode",
			"error":    err.Error(),
		}).Error("Frame generation failed")
		return nil, err
	}

	header, err := instruction.Build(instruction.Header{
		Mode:       plan.Mode,
		FinalFrame: uint32(plan.FinalFrame),
		FinalCount: uint32(plan.FinalCount),
		BlockSize:  uint32(e.settings.BlockSize),
	}, e.settings.Width, e.settings.Height)
	if err != nil {
		return nil, err
	}

	frames := make([]*frame.Buffer, 0, plan.TotalFrames+1)
	frames = append(frames, header)
	for _, chunkFrames := range results {
		frames = append(frames, chunkFrames...)
	}

	if got := len(frames) - 1; got != plan.TotalFrames {
		return nil, fmt.Errorf("%w: produced %d data frames, expected %d", ErrWorkerFailure, got, plan.TotalFrames)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Encoder.Encode",
		"frames":      len(frames),
		"final_frame": plan.FinalFrame,
		"final_count": plan.FinalCount,
		"duration":    time.Since(start).String(),
	}).Info("Frames etched successfully")

	return frames, nil
}

// runWorker etches one chunk into as many frames as it needs. Panics are
// converted into ErrWorkerFailure.
func (e *Encoder) runWorker(ctx context.Context, index int, chunk Payload, onFrame func()) (frames []*frame.Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Encoder.runWorker",
				"chunk":    index,
				"panic":    fmt.Sprint(r),
			}).Error("Embedding worker panicked")
			frames = nil
			err = fmt.Errorf("%w: chunk %d: %v", ErrWorkerFailure, index, r)
		}
	}()

	pos := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		buf, err := frame.New(e.settings.BlockSize, e.settings.Width, e.settings.Height)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrWorkerFailure, index, err)
		}

		result := etchFrame(buf, chunk, &pos)
		frames = append(frames, buf)
		onFrame()

		if result == chunkExhausted {
			logrus.WithFields(logrus.Fields{
				"function": "Encoder.runWorker",
				"chunk":    index,
				"frames":   len(frames),
				"units":    chunk.Len(),
			}).Debug("Embedding worker finished")
			return frames, nil
		}
	}
}

// etchFrame fills buf from chunk starting at *pos and advances *pos.
func etchFrame(buf *frame.Buffer, chunk Payload, pos *int) outcome {
	n := chunk.etchInto(buf, *pos)
	if n == 0 {
		// A frame with no capacity can never drain the chunk.
		panic(fmt.Sprintf("frame of %v holds no payload units", buf.Size()))
	}
	*pos += n
	if *pos >= chunk.Len() {
		return chunkExhausted
	}
	return moreData
}
