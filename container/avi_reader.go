package container

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// aviReader walks the movi list of an AVI file one frame chunk at a time.
type aviReader struct {
	f       *os.File
	r       *bufio.Reader
	pos     int64 // absolute file offset of r
	moviEnd int64

	width  int
	height int // negative for top-down bitmaps
	codec  frameCodec
	frames int
}

// aviStream is the subset of hdrl needed to decode frames.
type aviStream struct {
	width       int
	height      int
	handler     string
	compression uint32
	found       bool
}

func openAVI(path string) (*aviReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerRead, err)
	}

	ar := &aviReader{f: f, r: bufio.NewReader(f)}
	if err := ar.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return ar, nil
}

// readHeader validates the RIFF header, parses hdrl and stops at the start
// of the movi list.
func (ar *aviReader) readHeader() error {
	var riff [12]byte
	if err := ar.read(riff[:]); err != nil {
		return fmt.Errorf("%w: read RIFF header: %w", ErrContainerRead, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "AVI " {
		return fmt.Errorf("%w: not an AVI file", ErrContainerRead)
	}

	var stream aviStream
	for {
		id, size, err := ar.chunkHeader()
		if err != nil {
			return fmt.Errorf("%w: no movi list: %w", ErrContainerRead, err)
		}

		if id != "LIST" {
			if err := ar.skip(int64(size) + int64(size&1)); err != nil {
				return fmt.Errorf("%w: skip %s: %w", ErrContainerRead, id, err)
			}
			continue
		}

		var listType [4]byte
		if err := ar.read(listType[:]); err != nil {
			return fmt.Errorf("%w: read list type: %w", ErrContainerRead, err)
		}
		body := int64(size) - 4

		switch string(listType[:]) {
		case "hdrl":
			data := make([]byte, body)
			if err := ar.read(data); err != nil {
				return fmt.Errorf("%w: read hdrl: %w", ErrContainerRead, err)
			}
			parseHeaderList(data, &stream)
		case "movi":
			if !stream.found {
				return fmt.Errorf("%w: movi list before stream format", ErrContainerRead)
			}
			return ar.startMovi(stream, body)
		default:
			if err := ar.skip(body + int64(size&1)); err != nil {
				return fmt.Errorf("%w: skip LIST %s: %w", ErrContainerRead, string(listType[:]), err)
			}
		}
	}
}

func (ar *aviReader) startMovi(stream aviStream, body int64) error {
	codec, err := streamCodec(stream)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrContainerRead, err)
	}

	ar.codec = codec
	ar.width = stream.width
	ar.height = stream.height
	ar.moviEnd = ar.pos + body

	logrus.WithFields(logrus.Fields{
		"function": "aviReader.startMovi",
		"width":    ar.width,
		"height":   ar.height,
		"codec":    codec.FourCC(),
		"movi":     body,
	}).Debug("AVI stream header parsed")

	return nil
}

// streamCodec selects the frame codec from the stream format, preferring
// biCompression over the stream handler.
func streamCodec(s aviStream) (frameCodec, error) {
	if s.compression == 0 {
		return dibFrameCodec{}, nil
	}
	if c, err := lookupAVICodec(fourCCString(s.compression)); err == nil {
		return c, nil
	}
	return lookupAVICodec(s.handler)
}

// parseHeaderList extracts the first video stream format from hdrl data.
func parseHeaderList(data []byte, s *aviStream) {
	var inVideo bool
	for off := 0; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4:]))
		start := off + 8
		end := start + size
		if end > len(data) || end < start {
			return
		}
		body := data[start:end]

		switch id {
		case "LIST":
			if len(body) >= 4 && string(body[:4]) == "strl" && !s.found {
				parseHeaderList(body[4:], s)
			}
		case "strh":
			if len(body) >= 8 {
				inVideo = string(body[0:4]) == "vids"
				if inVideo {
					s.handler = string(body[4:8])
				}
			}
		case "strf":
			if inVideo && len(body) >= 20 && !s.found {
				s.width = int(int32(binary.LittleEndian.Uint32(body[4:])))
				s.height = int(int32(binary.LittleEndian.Uint32(body[8:])))
				s.compression = binary.LittleEndian.Uint32(body[16:])
				s.found = true
			}
		}

		off = end + size&1
	}
}

// Next returns the next video frame or io.EOF at the end of the movi list.
func (ar *aviReader) Next() (image.Image, error) {
	for {
		if ar.pos+8 > ar.moviEnd {
			return nil, io.EOF
		}

		id, size, err := ar.chunkHeader()
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %w", ErrContainerRead, ar.frames, err)
		}

		if id == "LIST" {
			// rec lists group chunks; descend into them
			if err := ar.skip(4); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrContainerRead, err)
			}
			continue
		}

		padded := int64(size) + int64(size&1)
		if ar.pos+int64(size) > ar.moviEnd {
			return nil, fmt.Errorf("%w: frame %d: chunk exceeds movi list", ErrContainerRead, ar.frames)
		}

		if !isVideoChunk(id) {
			if err := ar.skip(padded); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrContainerRead, err)
			}
			continue
		}

		data := make([]byte, size)
		if err := ar.read(data); err != nil {
			return nil, fmt.Errorf("%w: frame %d: %w", ErrContainerRead, ar.frames, err)
		}
		if size&1 != 0 {
			if err := ar.skip(1); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %w", ErrContainerRead, err)
			}
		}

		img, err := ar.codec.Decode(data, ar.width, ar.height)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %w", ErrContainerRead, ar.frames, err)
		}
		ar.frames++
		return img, nil
	}
}

func (ar *aviReader) Close() error {
	return ar.f.Close()
}

func isVideoChunk(id string) bool {
	return len(id) == 4 && (id[2:] == "dc" || id[2:] == "db")
}

func (ar *aviReader) chunkHeader() (string, uint32, error) {
	var hdr [8]byte
	if err := ar.read(hdr[:]); err != nil {
		return "", 0, err
	}
	return string(hdr[:4]), binary.LittleEndian.Uint32(hdr[4:]), nil
}

func (ar *aviReader) read(p []byte) error {
	n, err := io.ReadFull(ar.r, p)
	ar.pos += int64(n)
	return err
}

func (ar *aviReader) skip(n int64) error {
	skipped, err := io.CopyN(io.Discard, ar.r, n)
	ar.pos += skipped
	return err
}
