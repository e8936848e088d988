package python

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"refacto/internal/engine"
	"refacto/internal/logging"

	"github.com/spf13/viper"
)

// Runner executes Python source in a separate interpreter process.
type Runner struct {
	Interpreter string
	Timeout     time.Duration
}

func New() *Runner {
	return &Runner{
		Interpreter: viper.GetString("runner.python"),
		Timeout:     viper.GetDuration("runner.timeout"),
	}
}

func (r *Runner) Run(ctx context.Context, req engine.Request) engine.RunResult {
	if req.Blank() {
		return engine.RunResult{Err: engine.ErrEmptyCode}
	}

	file, err := writeSource(req.Code)
	if err != nil {
		return engine.RunResult{Err: err}
	}
	defer removeSource(file)

	timeout := req.TimeoutOr(r.Timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Interpreter, append([]string{file}, req.Args...)...)
	cmd.WaitDelay = time.Second
	if stdin := req.Stdin(); stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return engine.RunResult{Err: fmt.Errorf("%w: %v", engine.ErrTimeout, timeout)}
	case err == nil:
		return engine.RunResult{Val: strings.TrimSpace(stdout.String())}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = exitErr.Error()
		}
		return engine.RunResult{Err: errors.New(msg)}
	}
	return engine.RunResult{Err: err}
}

func writeSource(code string) (string, error) {
	file, err := os.CreateTemp("", "refacto-*.py")
	if err != nil {
		return "", fmt.Errorf("fail to create source file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(code); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("fail to write source file: %w", err)
	}
	return file.Name(), nil
}

func removeSource(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Component("python").WithError(err).Warn("fail to remove source file")
	}
}
