package io

import (
	"io"
	"strings"

	"github.com/elastic/hey-hull/server/strcoll"
)

// ANSI color codes
const (
	Red     = "\x1b[31m"
	Green   = "\x1b[32m"
	Yellow  = "\x1b[33m"
	Magenta = "\x1b[35m"
	Cyan    = "\x1b[36m"
	Grey    = "\x1b[37m"
)

var colors = []string{Red, Green, Yellow, Magenta, Cyan, Grey}

func Reply(w io.Writer, msg ...string) bool {
	if strcoll.Nth(0, msg) != "" {
		w.Write([]byte(strings.Join(msg, "\n")))
		return true
	}
	return false
}

func ReplyNL(w io.Writer, msg ...string) bool {
	if Reply(w, msg...) {
		return Reply(w, "\n")
	}
	return false
}

// writes the error in red if there is one, otherwise the messages
func ReplyEither(w io.Writer, err error, msg ...string) bool {
	if err != nil {
		return Reply(w, Red+strings.TrimSpace(err.Error())+Grey)
	}
	return Reply(w, msg...)
}

func ReplyEitherNL(w io.Writer, err error, msg ...string) {
	if ReplyEither(w, err, msg...) {
		Reply(w, "\n")
	}
}

func Prompt(w io.Writer) {
	Reply(w, Cyan+">> "+Grey)
}

// Plain wraps `w` so that colors are stripped before writing.
func Plain(w io.Writer) io.Writer {
	return plainWriter{w}
}

type plainWriter struct {
	w io.Writer
}

// reports len(p) on success so callers don't see a short write for the removed escape codes
func (pw plainWriter) Write(p []byte) (int, error) {
	if _, err := pw.w.Write([]byte(WithoutColors(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}

func WithoutColors(s string) string {
	for _, c := range colors {
		s = strings.Replace(s, c, "", -1)
	}
	return s
}
