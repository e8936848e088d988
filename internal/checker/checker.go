package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"refacto/internal/logging"
	"refacto/internal/metrics"

	"github.com/spf13/viper"
)

var (
	ErrEmptyCode      = errors.New("empty code string provided, pylint cannot check empty code")
	ErrLinterNotFound = errors.New("linter not found")
	ErrTimeout        = errors.New("linter timed out")
)

// Checker runs an external linter over a code string.
type Checker struct {
	Binary  string
	Args    []string
	Timeout time.Duration
}

func New() *Checker {
	return &Checker{
		Binary:  viper.GetString("checker.binary"),
		Args:    viper.GetStringSlice("checker.args"),
		Timeout: viper.GetDuration("checker.timeout"),
	}
}

// Check writes code to a temporary file, lints it and returns the linter's
// report. A non-zero linter exit status is not an error: pylint exits
// non-zero whenever it has something to report.
func (c *Checker) Check(ctx context.Context, code string) (string, error) {
	report, err := c.check(ctx, code)
	metrics.LintChecks.WithLabelValues(resultOf(err)).Inc()
	return report, err
}

func (c *Checker) check(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", ErrEmptyCode
	}

	file, err := os.CreateTemp("", "refacto-*.py")
	if err != nil {
		return "", fmt.Errorf("error occurred while running %s: %w", c.name(), err)
	}
	defer func() {
		if err := os.Remove(file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Component("checker").WithError(err).Warn("fail to remove source file")
		}
	}()

	_, err = file.WriteString(code)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("error occurred while running %s: %w", c.name(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	args := append(append([]string{}, c.Args...), file.Name())
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.WaitDelay = time.Second

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err = cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "", fmt.Errorf("%w after %v", ErrTimeout, c.Timeout)
	case ctx.Err() != nil:
		// killed on cancel; whatever it printed is not a report
		return "", fmt.Errorf("%s interrupted: %w", c.name(), ctx.Err())
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("%w: '%s' not found. Is it installed and on PATH?", ErrLinterNotFound, c.name())
	case err == nil, errors.As(err, &exitErr):
		return strings.TrimSpace(stdout.String()), nil
	default:
		return "", fmt.Errorf("error occurred while running %s: %w", c.name(), err)
	}
}

func (c *Checker) name() string {
	return filepath.Base(c.Binary)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrTimeout):
		return metrics.ResultTimeout
	default:
		return metrics.ResultError
	}
}
