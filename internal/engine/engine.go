package engine

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyCode = errors.New("empty code string provided")
	ErrTimeout   = errors.New("execution timeout")
)

// Request is a piece of code to execute together with its command line
// arguments and the lines fed to standard input.
type Request struct {
	Code    string
	Args    []string
	Inputs  []string
	Timeout time.Duration
}

// RunResult carries the captured output of a run, or the reason it failed.
type RunResult struct {
	Val string
	Err error
}

func (r RunResult) String() string {
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}
	return r.Val
}

func (req Request) Blank() bool {
	return strings.TrimSpace(req.Code) == ""
}

// TimeoutOr returns the request timeout, or fallback when unset.
func (req Request) TimeoutOr(fallback time.Duration) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return fallback
}

// Stdin joins the input lines the way an interactive user would type them.
func (req Request) Stdin() string {
	if len(req.Inputs) == 0 {
		return ""
	}
	return strings.Join(req.Inputs, "\n") + "\n"
}

// LineReader hands out input lines one by one to the in-process engines.
type LineReader struct {
	lines []string
}

func NewLineReader(lines []string) *LineReader {
	return &LineReader{lines: lines}
}

var ErrEOF = errors.New("EOF when reading a line")

func (r *LineReader) Next() (string, error) {
	if len(r.lines) == 0 {
		return "", ErrEOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}
