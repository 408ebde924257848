package io

import (
	"bytes"
	"math"
	"strconv"
	s "strings"

	"github.com/pkg/errors"

	"github.com/elastic/hey-hull/geometry"
)

// MaxLineSize is the longest command accepted, newline excluded.
const MaxLineSize = 1024

var (
	ErrLineTooLong    = errors.New("line too long")
	ErrBadCoordinates = errors.New("invalid coordinates format")
)

// Frame is either one complete command line or a framing error.
type Frame struct {
	Line string
	Err  error
}

// Framer splits a byte stream into newline delimited commands.
// A single read may carry several commands or a fragment of one, bytes after the last newline are kept
// until the next Feed. A trailing carriage return is dropped and blank lines are skipped.
// Lines longer than MaxLineSize yield ErrLineTooLong once, and everything up to the next newline is discarded.
type Framer struct {
	buf        []byte
	discarding bool
}

func (f *Framer) Feed(p []byte) []Frame {
	frames := make([]Frame, 0)
	for len(p) > 0 {
		idx := bytes.IndexByte(p, '\n')
		if idx < 0 {
			if !f.discarding {
				f.buf = append(f.buf, p...)
				if len(f.buf) > MaxLineSize {
					frames = append(frames, Frame{Err: ErrLineTooLong})
					f.buf = f.buf[:0]
					f.discarding = true
				}
			}
			return frames
		}

		chunk := p[:idx]
		p = p[idx+1:]
		if f.discarding {
			f.discarding = false
			continue
		}
		f.buf = append(f.buf, chunk...)
		line := s.TrimSuffix(string(f.buf), "\r")
		f.buf = f.buf[:0]
		switch {
		case len(line) > MaxLineSize:
			frames = append(frames, Frame{Err: ErrLineTooLong})
		case s.TrimSpace(line) != "":
			frames = append(frames, Frame{Line: line})
		}
	}
	return frames
}

// Pending returns how many bytes of an incomplete line are buffered.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// ParsePoint reads a "<x>,<y>" pair, spaces around either number are allowed.
func ParsePoint(input string) (geometry.Point, error) {
	xs, ys := splitKV(input, ",")
	x, err := parseCoordinate(xs)
	if err != nil {
		return geometry.Point{}, err
	}
	y, err := parseCoordinate(ys)
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Point{X: x, Y: y}, nil
}

// LooksLikePoint is true when `input` is a bare coordinate pair rather than a command.
func LooksLikePoint(input string) bool {
	_, err := ParsePoint(input)
	return err == nil
}

func parseCoordinate(input string) (float64, error) {
	f, err := strconv.ParseFloat(s.TrimSpace(input), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrBadCoordinates
	}
	return f, nil
}

func splitKV(input, sep string) (string, string) {
	if idx := s.Index(input, sep); idx >= 0 {
		return input[:idx], input[idx+len(sep):]
	}
	return input, ""
}
