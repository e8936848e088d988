package starlark

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"refacto/internal/engine"
	"refacto/internal/utils"

	"github.com/spf13/viper"
	"go.starlark.net/lib/json"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

type codeCache struct {
	id         string
	source     string
	program    *starlark.Program
	cachedTime time.Time
}

const scriptName = "main.star"
const maxCaches = 100

var (
	codeCaches = make(map[string]codeCache)
	cacheKeys  []string
	cacheLock  sync.RWMutex
)

// names bound per run; programs are compiled against them once
var predeclaredNames = map[string]bool{"input": true, "argv": true, "json": true}

func init() {
	// submissions are scripts, not config files: allow top-level loops,
	// while statements and rebinding globals
	resolve.AllowGlobalReassign = true
	resolve.AllowRecursion = true
	resolve.AllowSet = true
}

func ClearCache(id string) {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	index := utils.Find(cacheKeys, id)
	if index < 0 {
		return
	}

	delete(codeCaches, id)
	cacheKeys = utils.Remove(cacheKeys, index)
}

// CacheID is the key under which the compiled form of code is cached.
func CacheID(code string) string {
	return utils.Hash(code)
}

func compile(id string, code string) (*starlark.Program, error) {
	cacheLock.RLock()
	cache, cacheExist := codeCaches[id]
	cacheLock.RUnlock()

	ttl := viper.GetDuration("code-cache-expiration")
	if cacheExist && (cache.source != code || time.Since(cache.cachedTime) > ttl) {
		ClearCache(cache.id)
		cacheExist = false
	}

	if cacheExist {
		return cache.program, nil
	}

	file, err := syntax.Parse(scriptName, code, 0)
	if err != nil {
		return nil, err
	}

	program, err := starlark.FileProgram(file, func(name string) bool {
		return predeclaredNames[name]
	})
	if err != nil {
		return nil, err
	}

	cacheLock.Lock()
	defer cacheLock.Unlock()

	if _, exist := codeCaches[id]; !exist {
		cacheKeys = append(cacheKeys, id)
	}
	codeCaches[id] = codeCache{
		id:         id,
		source:     code,
		program:    program,
		cachedTime: time.Now(),
	}

	if len(cacheKeys) > maxCaches {
		// remove oldest cache when exceeded
		delete(codeCaches, cacheKeys[0])
		cacheKeys = cacheKeys[1:]
	}

	return program, nil
}

// Run executes code as a Starlark module. print output is captured, input()
// reads successive lines of req.Inputs and argv holds the script name
// followed by req.Args.
func Run(ctx context.Context, req engine.Request) engine.RunResult {
	if req.Blank() {
		return engine.RunResult{Err: engine.ErrEmptyCode}
	}

	program, err := compile(CacheID(req.Code), req.Code)
	if err != nil {
		return engine.RunResult{Err: err}
	}

	var out strings.Builder
	thread := &starlark.Thread{
		Name: scriptName,
		Print: func(_ *starlark.Thread, msg string) {
			out.WriteString(msg)
			out.WriteByte('\n')
		},
	}

	reader := engine.NewLineReader(req.Inputs)
	input := starlark.NewBuiltin("input", func(_ *starlark.Thread, b *starlark.Builtin,
		args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var prompt string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0, &prompt); err != nil {
			return nil, err
		}
		out.WriteString(prompt)

		line, err := reader.Next()
		if err != nil {
			return nil, err
		}
		return starlark.String(line), nil
	})

	argv := []starlark.Value{starlark.String(scriptName)}
	for _, arg := range req.Args {
		argv = append(argv, starlark.String(arg))
	}

	predeclared := starlark.StringDict{
		"input": input,
		"argv":  starlark.NewList(argv),
		"json":  json.Module,
	}

	timeout := req.TimeoutOr(viper.GetDuration("timeout"))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// result channel
	ch := make(chan engine.RunResult, 1)

	go func() {
		res := engine.RunResult{}
		if _, err := program.Init(thread, predeclared); err != nil {
			res.Err = err
		} else {
			res.Val = strings.TrimSpace(out.String())
		}
		ch <- res
	}()

	select {
	case <-ctx.Done():
		thread.Cancel("timeout")
		return engine.RunResult{Err: fmt.Errorf("%w: %v", engine.ErrTimeout, timeout)}
	case res := <-ch:
		return res
	}
}
