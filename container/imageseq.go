package container

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/bmp"
)

func init() {
	Register(imageSeqBackend{})
}

// frameFilePrefix names every frame file inside a sequence directory.
const frameFilePrefix = "frame_"

// imageFormat encodes and decodes one still image format.
type imageFormat struct {
	ext    string
	encode func(io.Writer, image.Image) error
	decode func(io.Reader) (image.Image, error)
}

var imageFormats = map[string]imageFormat{
	"BMP": {ext: ".bmp", encode: bmp.Encode, decode: bmp.Decode},
	"PNG": {ext: ".png", encode: encodeFastPNG, decode: png.Decode},
}

func encodeFastPNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

func lookupImageFormat(codec string) (imageFormat, error) {
	f, ok := imageFormats[strings.TrimSpace(fourCC(codec))]
	if !ok {
		return imageFormat{}, fmt.Errorf("%w: imageseq backend has no %q codec", ErrUnsupportedCodec, codec)
	}
	return f, nil
}

// imageSeqBackend stores a video as a directory of numbered still images.
// It exists for lossless inspection of individual frames.
type imageSeqBackend struct{}

func (imageSeqBackend) Name() string { return BackendImageSeq }

func (imageSeqBackend) Codecs() (primary, fallback string) { return "BMP ", "PNG " }

func (imageSeqBackend) Create(path, codec string, _ float64, width, height int) (Writer, error) {
	format, err := lookupImageFormat(codec)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	entries, err := os.ReadDir(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	case len(entries) > 0:
		return nil, fmt.Errorf("frame directory %s is not empty", path)
	}

	return &imageSeqWriter{dir: path, format: format}, nil
}

func (imageSeqBackend) Open(path string) (Reader, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerRead, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !isFrameFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s holds no frame files", ErrContainerRead, path)
	}
	sort.Strings(files)

	return &imageSeqReader{files: files}, nil
}

// Remove deletes the frame files and then the directory if nothing else is
// left in it.
func (imageSeqBackend) Remove(path string) error {
	entries, err := os.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var errs []error
	remaining := 0
	for _, e := range entries {
		if e.IsDir() || !isFrameFile(e.Name()) {
			remaining++
			continue
		}
		if err := os.Remove(filepath.Join(path, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	if remaining == 0 && len(errs) == 0 {
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isFrameFile(name string) bool {
	if !strings.HasPrefix(name, frameFilePrefix) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range imageFormats {
		if f.ext == ext {
			return true
		}
	}
	return false
}

func frameFileName(i int, ext string) string {
	return fmt.Sprintf("%s%06d%s", frameFilePrefix, i, ext)
}

type imageSeqWriter struct {
	dir    string
	format imageFormat
	n      int
}

func (w *imageSeqWriter) WriteFrame(img image.Image) error {
	name := filepath.Join(w.dir, frameFileName(w.n, w.format.ext))
	f, err := os.Create(name)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	if err := w.format.encode(bw, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	w.n++
	return nil
}

func (w *imageSeqWriter) Close() error {
	logrus.WithFields(logrus.Fields{
		"function": "imageSeqWriter.Close",
		"dir":      w.dir,
		"frames":   w.n,
	}).Debug("Frame sequence closed")
	return nil
}

type imageSeqReader struct {
	files []string
	next  int
}

func (r *imageSeqReader) Next() (image.Image, error) {
	if r.next >= len(r.files) {
		return nil, io.EOF
	}
	name := r.files[r.next]

	format, ok := formatForFile(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown image format", ErrContainerRead, name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerRead, err)
	}
	defer f.Close()

	img, err := format.decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrContainerRead, name, err)
	}

	r.next++
	return img, nil
}

func (r *imageSeqReader) Close() error {
	r.next = len(r.files)
	return nil
}

func formatForFile(name string) (imageFormat, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range imageFormats {
		if f.ext == ext {
			return f, true
		}
	}
	return imageFormat{}, false
}
