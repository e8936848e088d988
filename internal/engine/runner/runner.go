package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"refacto/internal/engine"
	"refacto/internal/engine/javascript"
	"refacto/internal/engine/python"
	"refacto/internal/engine/starlark"
	"refacto/internal/metrics"
)

const (
	Python     = "python"
	Starlark   = "starlark"
	JavaScript = "javascript"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

var Languages = []string{Python, Starlark, JavaScript}

// Normalize maps a user supplied language name onto one of Languages.
// The empty string selects Python.
func Normalize(lang string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", Python, "py":
		return Python, nil
	case Starlark, "star":
		return Starlark, nil
	case JavaScript, "js":
		return JavaScript, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
}

// Run executes req with the engine for lang and records the run.
func Run(ctx context.Context, lang string, req engine.Request) engine.RunResult {
	lang, err := Normalize(lang)
	if err != nil {
		return engine.RunResult{Err: err}
	}

	start := time.Now()

	var res engine.RunResult
	switch lang {
	case Python:
		res = python.New().Run(ctx, req)
	case Starlark:
		res = starlark.Run(ctx, req)
	case JavaScript:
		res = javascript.Run(ctx, req)
	}

	metrics.ObserveRun(lang, res.Err, time.Since(start))
	return res
}
