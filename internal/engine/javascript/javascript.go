package javascript

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"refacto/internal/engine"

	"github.com/robertkrimen/otto"
	"github.com/spf13/viper"
)

const prelude = `
function print() {
    console.log.apply(console, arguments)
}
`

const scriptName = "main.js"

// max concurrent runners
const runnerNum = 20

var (
	template *otto.Otto
	// runner pool
	engines chan *otto.Otto
)

var errHalt = errors.New("halt")

func Init() error {
	// create template
	template = otto.New()
	if _, err := template.Run(prelude); err != nil {
		return err
	}

	engines = make(chan *otto.Otto, runnerNum)
	for i := 0; i < runnerNum; i++ {
		engines <- template.Copy()
	}

	return nil
}

// Run executes code in a pooled otto VM. console.log and print output is
// captured, input() reads successive lines of req.Inputs and argv holds the
// script name followed by req.Args.
func Run(ctx context.Context, req engine.Request) engine.RunResult {
	if req.Blank() {
		return engine.RunResult{Err: engine.ErrEmptyCode}
	}

	var vm *otto.Otto
	select {
	case vm = <-engines:
	case <-ctx.Done():
		return engine.RunResult{Err: ctx.Err()}
	}
	// globals leak between runs, so the slot gets a fresh copy
	defer func() {
		engines <- template.Copy()
	}()

	var out strings.Builder
	if err := bindGlobals(vm, &out, req); err != nil {
		return engine.RunResult{Err: err}
	}

	timeout := req.TimeoutOr(viper.GetDuration("timeout"))
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// interrupt channel
	vm.Interrupt = make(chan func(), 1)
	// result channel
	ch := make(chan engine.RunResult, 1)

	go func() {
		defer func() {
			if caught := recover(); caught != nil {
				if caught == errHalt {
					ch <- engine.RunResult{Err: fmt.Errorf("%w: %v", engine.ErrTimeout, timeout)}
					return
				}
				ch <- engine.RunResult{Err: fmt.Errorf("%v", caught)}
			}
		}()

		res := engine.RunResult{}
		if _, err := vm.Run(req.Code); err != nil {
			res.Err = err
		} else {
			res.Val = strings.TrimSpace(out.String())
		}
		ch <- res
	}()

	select {
	case <-ctx.Done():
		vm.Interrupt <- func() {
			panic(errHalt)
		}
		<-ch
		return engine.RunResult{Err: fmt.Errorf("%w: %v", engine.ErrTimeout, timeout)}
	case res := <-ch:
		return res
	}
}

func bindGlobals(vm *otto.Otto, out *strings.Builder, req engine.Request) error {
	console, err := vm.Object(`({})`)
	if err != nil {
		return err
	}

	err = console.Set("log", func(call otto.FunctionCall) otto.Value {
		parts := make([]string, 0, len(call.ArgumentList))
		for _, arg := range call.ArgumentList {
			parts = append(parts, arg.String())
		}
		out.WriteString(strings.Join(parts, " "))
		out.WriteByte('\n')
		return otto.UndefinedValue()
	})
	if err != nil {
		return err
	}

	if err := vm.Set("console", console); err != nil {
		return err
	}

	reader := engine.NewLineReader(req.Inputs)
	err = vm.Set("input", func(call otto.FunctionCall) otto.Value {
		if prompt := call.Argument(0); prompt.IsDefined() {
			out.WriteString(prompt.String())
		}
		line, err := reader.Next()
		if err != nil {
			panic(call.Otto.MakeCustomError("EOFError", err.Error()))
		}
		value, _ := otto.ToValue(line)
		return value
	})
	if err != nil {
		return err
	}

	return vm.Set("argv", append([]string{scriptName}, req.Args...))
}
