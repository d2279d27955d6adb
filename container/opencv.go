//go:build opencv

package container

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

func init() {
	Register(openCVBackend{})
}

// openCVBackend hands frames to OpenCV, which picks the container format
// from the file extension.
type openCVBackend struct{}

func (openCVBackend) Name() string { return BackendOpenCV }

func (openCVBackend) Codecs() (primary, fallback string) { return "png ", "avc1" }

func (openCVBackend) Create(path, codec string, fps float64, width, height int) (Writer, error) {
	if len(codec) != 4 {
		return nil, fmt.Errorf("%w: fourcc %q must be four characters", ErrUnsupportedCodec, codec)
	}

	vw, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, err
	}
	if !vw.IsOpened() {
		vw.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%w: OpenCV could not open %s with %q", ErrUnsupportedCodec, path, codec)
	}

	return &openCVWriter{vw: vw, width: width, height: height}, nil
}

func (openCVBackend) Open(path string) (Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerRead, err)
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerRead, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: OpenCV could not open %s", ErrContainerRead, path)
	}
	return &openCVReader{vc: vc}, nil
}

func (openCVBackend) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type openCVWriter struct {
	vw     *gocv.VideoWriter
	width  int
	height int
}

func (w *openCVWriter) WriteFrame(img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	if mat.Cols() != w.width || mat.Rows() != w.height {
		return fmt.Errorf("frame is %dx%d, writer expects %dx%d", mat.Cols(), mat.Rows(), w.width, w.height)
	}
	return w.vw.Write(mat)
}

func (w *openCVWriter) Close() error {
	return w.vw.Close()
}

type openCVReader struct {
	vc     *gocv.VideoCapture
	frames int
}

func (r *openCVReader) Next() (image.Image, error) {
	mat := gocv.NewMat()
	defer mat.Close()

	if ok := r.vc.Read(&mat); !ok || mat.Empty() {
		logrus.WithFields(logrus.Fields{
			"function": "openCVReader.Next",
			"frames":   r.frames,
		}).Debug("End of video stream")
		return nil, io.EOF
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: %w", ErrContainerRead, r.frames, err)
	}
	r.frames++
	return img, nil
}

func (r *openCVReader) Close() error {
	return r.vc.Close()
}
