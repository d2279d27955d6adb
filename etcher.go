package etcher

import (
	"context"
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/opd-ai/etcher/config"
	"github.com/opd-ai/etcher/container"
	"github.com/opd-ai/etcher/limits"
	"github.com/opd-ai/etcher/sequencer"
)

// Options controls container selection and progress reporting for Embed and
// Dislodge.
type Options struct {
	// Container selects the backend and codecs. FPS is taken from the
	// settings passed to Embed.
	Container container.Options

	// FrameProgress is called after each frame is etched or decoded.
	// During Embed it is called from several goroutines.
	FrameProgress sequencer.ProgressFunc

	// WriteProgress is called after each frame is written to the container.
	WriteProgress func(done, total int)
}

// NewOptions returns options selecting the container backend from the
// output path with the backend's default codecs.
func NewOptions() Options {
	return Options{}
}

// Report summarizes a finished Embed.
type Report struct {
	RunID      string
	Frames     int // including the instruction frame
	Bytes      int
	Digest     string // BLAKE2b-256 of the payload, hex encoded
	Duration   time.Duration
	OutputPath string
}

// Embed etches data into a new video at outPath.
//
// Frames are generated in parallel using settings.Threads workers, then
// written in order behind the instruction frame. If writing fails the
// partial video is removed.
func Embed(ctx context.Context, outPath string, data []byte, settings config.Settings, opts Options) (*Report, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := logrus.WithFields(logrus.Fields{
		"function": "Embed",
		"run_id":   runID,
		"output":   outPath,
	})

	if err := limits.ValidatePayload(data); err != nil {
		log.WithField("error", err.Error()).Error("Rejected payload")
		return nil, err
	}

	enc, err := sequencer.NewEncoder(settings)
	if err != nil {
		log.WithField("error", err.Error()).Error("Invalid settings")
		return nil, err
	}
	enc.OnProgress(opts.FrameProgress)

	digest := Digest(data)
	log.WithFields(logrus.Fields{
		"bytes":    len(data),
		"digest":   digest,
		"settings": settings.String(),
	}).Info("Embedding payload")

	buffers, err := enc.Encode(ctx, sequencer.PayloadFromBytes(settings.Mode, data))
	if err != nil {
		log.WithField("error", err.Error()).Error("Frame generation failed")
		return nil, err
	}
	etched := time.Since(start)

	frames := make([]image.Image, len(buffers))
	for i, b := range buffers {
		frames[i] = b.Image()
	}

	copts := opts.Container
	copts.FPS = settings.FPS
	copts.Progress = opts.WriteProgress
	if err := container.WriteAll(outPath, frames, copts); err != nil {
		log.WithField("error", err.Error()).Error("Container write failed")
		return nil, err
	}

	report := &Report{
		RunID:      runID,
		Frames:     len(frames),
		Bytes:      len(data),
		Digest:     digest,
		Duration:   time.Since(start),
		OutputPath: outPath,
	}

	log.WithFields(logrus.Fields{
		"frames":        report.Frames,
		"etch_duration": etched.String(),
		"duration":      report.Duration.String(),
	}).Info("Embed complete")

	return report, nil
}

// Dislodge reads the video at path and returns the embedded payload.
func Dislodge(ctx context.Context, path string, opts Options) ([]byte, error) {
	start := time.Now()
	log := logrus.WithFields(logrus.Fields{
		"function": "Dislodge",
		"run_id":   uuid.New().String(),
		"input":    path,
	})

	r, err := container.Open(path, opts.Container)
	if err != nil {
		log.WithField("error", err.Error()).Error("Cannot open video")
		return nil, err
	}
	defer r.Close()

	dec := sequencer.NewDecoder()
	dec.OnProgress(opts.FrameProgress)

	data, err := dec.Decode(ctx, r)
	if err != nil {
		log.WithField("error", err.Error()).Error("Decode failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"bytes":    len(data),
		"digest":   Digest(data),
		"duration": time.Since(start).String(),
	}).Info("Dislodge complete")

	return data, nil
}

// RipBytes reads the file at path for embedding. Empty files are rejected
// with ErrEmptyInput and files larger than limits.MaxPayload with
// ErrPayloadTooLarge.
func RipBytes(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read %s: is a directory", path)
	}
	if info.Size() > limits.MaxPayload {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrPayloadTooLarge, path, info.Size(), limits.MaxPayload)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := limits.ValidatePayload(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "RipBytes",
		"path":     path,
		"bytes":    len(data),
	}).Debug("Bytes ripped from file")

	return data, nil
}

// WriteBytes writes a recovered payload to path. A file that cannot be
// written completely is removed.
func WriteBytes(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	_, werr := f.Write(data)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, werr)
	}

	logrus.WithFields(logrus.Fields{
		"function": "WriteBytes",
		"path":     path,
		"bytes":    len(data),
	}).Debug("Bytes written to file")

	return nil
}

// Digest returns the hex encoded BLAKE2b-256 sum of data. Embed and Dislodge
// log it so a recovered file can be matched against its source.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
