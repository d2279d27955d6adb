// Package main provides the etcher command-line interface.
//
// etcher embeds a file into the frames of a video and dislodges it again:
//
//	etcher embed -in archive.tar -out archive.avi -preset optimal
//	etcher dislodge -in archive.avi -out archive.tar
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/etcher"
	"github.com/opd-ai/etcher/config"
	"github.com/opd-ai/etcher/container"
	"github.com/opd-ai/etcher/frame"
	"github.com/opd-ai/etcher/sequencer"
)

// globalConfig holds flags shared by every subcommand.
type globalConfig struct {
	logLevel string
	progress bool
}

// embedConfig holds the embed subcommand flags.
type embedConfig struct {
	in         string
	out        string
	preset     string
	mode       string
	blockSize  int
	threads    int
	fps        float64
	resolution string
	configPath string
	backend    string
}

// dislodgeConfig holds the dislodge subcommand flags.
type dislodgeConfig struct {
	in      string
	out     string
	backend string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// setupSignalHandling cancels ctx on interrupt so workers stop at the next
// frame boundary.
func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	go func() {
		sig := <-sigChan
		logrus.WithField("signal", sig.String()).Warn("Interrupted, stopping")
		cancel()
	}()
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := &globalConfig{}
	fs := flag.NewFlagSet("etcher", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&global.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&global.progress, "progress", true, "Show progress bars")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if err := setupLogging(global.logLevel, stderr); err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr, fs)
		return 1
	}

	var err error
	switch rest[0] {
	case "embed":
		err = runEmbed(ctx, global, rest[1:], stdout, stderr)
	case "dislodge":
		err = runDislodge(ctx, global, rest[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout, fs)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n", rest[0])
		printUsage(stderr, fs)
		return 1
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		logrus.WithFields(logrus.Fields{
			"command": rest[0],
			"error":   err.Error(),
		}).Error("Command failed")
		return 1
	}
	return 0
}

func setupLogging(level string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "etcher: store files inside video frames")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  etcher [global options] embed -in FILE [-out VIDEO] [options]")
	fmt.Fprintln(w, "  etcher [global options] dislodge -in VIDEO -out FILE [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Presets: %s\n", strings.Join(config.Presets(), ", "))
	fmt.Fprintf(w, "Backends: %s\n", strings.Join(container.Backends(), ", "))
}

func parseEmbedFlags(args []string, stderr io.Writer) (*embedConfig, map[string]bool, error) {
	cfg := &embedConfig{}
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.in, "in", "", "File to embed (required)")
	fs.StringVar(&cfg.out, "out", "output.avi", "Output video path")
	fs.StringVar(&cfg.preset, "preset", "", "Preset: "+strings.Join(config.Presets(), ", "))
	fs.StringVar(&cfg.mode, "mode", "", "Embed mode: binary or color")
	fs.IntVar(&cfg.blockSize, "block-size", 0, "Block size in pixels")
	fs.IntVar(&cfg.threads, "threads", 0, "Number of embedding workers")
	fs.Float64Var(&cfg.fps, "fps", 0, "Frame rate of the output video")
	fs.StringVar(&cfg.resolution, "resolution", "", "Resolution: 144p, 240p, 360p, 480p or 720p")
	fs.StringVar(&cfg.configPath, "config", "", "YAML settings file")
	fs.StringVar(&cfg.backend, "backend", "", "Container backend (default: chosen from -out)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if cfg.in == "" {
		return nil, nil, errors.New("embed: -in is required")
	}
	return cfg, set, nil
}

// resolveSettings layers defaults, the settings file or preset and explicit
// flags, in that order.
func resolveSettings(cfg *embedConfig, set map[string]bool) (config.Settings, container.Options, error) {
	settings := config.Default()
	var copts container.Options

	if cfg.configPath != "" {
		file, err := config.Load(cfg.configPath)
		if err != nil {
			return settings, copts, err
		}
		settings = file.Settings
		copts.Backend = file.Container.Backend
		copts.Codec = file.Container.Codec
		copts.FallbackCodec = file.Container.FallbackCodec
	}

	if set["preset"] {
		p, err := config.FromPreset(cfg.preset)
		if err != nil {
			return settings, copts, err
		}
		settings = p
	}

	if set["resolution"] {
		w, h, err := config.Resolution(cfg.resolution)
		if err != nil {
			return settings, copts, err
		}
		settings.Width, settings.Height = w, h
	}
	if set["mode"] {
		m, err := frame.ParseMode(cfg.mode)
		if err != nil {
			return settings, copts, err
		}
		settings.Mode = m
	}
	if set["block-size"] {
		settings.BlockSize = cfg.blockSize
	}
	if set["threads"] {
		settings.Threads = cfg.threads
	}
	if set["fps"] {
		settings.FPS = cfg.fps
	}
	if set["backend"] {
		copts.Backend = cfg.backend
	}

	return settings, copts, settings.Validate()
}

func runEmbed(ctx context.Context, global *globalConfig, args []string, stdout, stderr io.Writer) error {
	cfg, set, err := parseEmbedFlags(args, stderr)
	if err != nil {
		return err
	}

	settings, copts, err := resolveSettings(cfg, set)
	if err != nil {
		return err
	}

	data, err := etcher.RipBytes(cfg.in)
	if err != nil {
		return err
	}

	opts := etcher.NewOptions()
	opts.Container = copts

	var bars []*progressbar.ProgressBar
	if global.progress {
		etchBar := newBar(stderr, -1, "Etching frames")
		writeBar := newBar(stderr, -1, "Writing video")
		opts.FrameProgress = barProgress(etchBar)
		opts.WriteProgress = barProgress(writeBar)
		bars = append(bars, etchBar, writeBar)
	}

	report, err := etcher.Embed(ctx, cfg.out, data, settings, opts)
	finishBars(bars)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Embedded %d bytes into %d frames: %s\n", report.Bytes, report.Frames, report.OutputPath)
	fmt.Fprintf(stdout, "BLAKE2b-256: %s\n", report.Digest)
	return nil
}

func runDislodge(ctx context.Context, global *globalConfig, args []string, stdout, stderr io.Writer) error {
	cfg := &dislodgeConfig{}
	fs := flag.NewFlagSet("dislodge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.in, "in", "", "Video to read (required)")
	fs.StringVar(&cfg.out, "out", "", "Path of the recovered file (required)")
	fs.StringVar(&cfg.backend, "backend", "", "Container backend (default: chosen from -in)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.in == "" || cfg.out == "" {
		return errors.New("dislodge: -in and -out are required")
	}

	opts := etcher.NewOptions()
	opts.Container.Backend = cfg.backend

	var bars []*progressbar.ProgressBar
	if global.progress {
		bar := newBar(stderr, -1, "Dislodging frames")
		opts.FrameProgress = barProgress(bar)
		bars = append(bars, bar)
	}

	data, err := etcher.Dislodge(ctx, cfg.in, opts)
	finishBars(bars)
	if err != nil {
		return err
	}

	if err := etcher.WriteBytes(cfg.out, data); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Dislodged %d bytes to %s\n", len(data), cfg.out)
	fmt.Fprintf(stdout, "BLAKE2b-256: %s\n", etcher.Digest(data))
	return nil
}

func newBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// barProgress adapts a progress bar to a frame progress callback. The total
// is only known once the first frame is done.
func barProgress(bar *progressbar.ProgressBar) sequencer.ProgressFunc {
	return func(_, total int) {
		if bar.GetMax() != total {
			bar.ChangeMax(total)
		}
		_ = bar.Add(1)
	}
}

func finishBars(bars []*progressbar.ProgressBar) {
	for _, bar := range bars {
		_ = bar.Finish()
	}
}
