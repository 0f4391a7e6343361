package cipher

import (
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/robertkrimen/otto"
)

// execTimeout bounds a single sandboxed invocation. The transformation
// functions are tiny; anything running longer is stuck.
const execTimeout = 5 * time.Second

var errExecTimeout = errors.New("script execution timed out")

// runGoja evaluates the script in a fresh goja VM with the given global
// arrays bound, then calls funcName with the token as sole argument.
// The VM is discarded afterwards; no state survives calls. Any VM
// error, throw, or timeout comes back as an error, never a panic.
func runGoja(script *PlayerScript, funcName, token string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sandbox panic: %v", r)
		}
	}()

	vm := goja.New()
	timer := time.AfterFunc(execTimeout, func() {
		vm.Interrupt(errExecTimeout)
	})
	defer timer.Stop()

	// Some player versions call console.log during initialization.
	_ = vm.Set("console", map[string]any{"log": func(...any) {}})

	for name, arr := range script.Globals() {
		if err := vm.Set(name, arr); err != nil {
			return "", fmt.Errorf("bind global %s: %w", name, err)
		}
	}

	if _, err := vm.RunString(script.Body); err != nil {
		return "", fmt.Errorf("evaluate script: %w", err)
	}

	fn, ok := goja.AssertFunction(vm.Get(funcName))
	if !ok {
		return "", fmt.Errorf("function %q not found", funcName)
	}
	res, err := fn(goja.Undefined(), vm.ToValue(token))
	if err != nil {
		return "", fmt.Errorf("call %s: %w", funcName, err)
	}
	if goja.IsUndefined(res) || goja.IsNull(res) {
		return "", fmt.Errorf("%s returned no value", funcName)
	}
	return res.String(), nil
}

// runOtto is the secondary interpreter, tried when goja rejects the
// script. Otto accepts some constructs goja does not and vice versa.
func runOtto(script *PlayerScript, funcName, token string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sandbox panic: %v", r)
		}
	}()

	vm := otto.New()
	vm.Interrupt = make(chan func(), 1)
	timer := time.AfterFunc(execTimeout, func() {
		vm.Interrupt <- func() { panic(errExecTimeout) }
	})
	defer timer.Stop()

	for name, arr := range script.Globals() {
		if err := vm.Set(name, arr); err != nil {
			return "", fmt.Errorf("bind global %s: %w", name, err)
		}
	}

	if _, err := vm.Run(script.Body); err != nil {
		return "", fmt.Errorf("evaluate script: %w", err)
	}

	fn, err := vm.Get(funcName)
	if err != nil || !fn.IsFunction() {
		return "", fmt.Errorf("function %q not found", funcName)
	}
	value, err := vm.Call(funcName, nil, token)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", funcName, err)
	}
	out, err := value.ToString()
	if err != nil {
		return "", fmt.Errorf("%s did not return a string: %w", funcName, err)
	}
	return out, nil
}

// execute tries the interpreters in order against a disposable sandbox.
func execute(script *PlayerScript, funcName, token string) (string, error) {
	out, gojaErr := runGoja(script, funcName, token)
	if gojaErr == nil {
		return out, nil
	}
	out, ottoErr := runOtto(script, funcName, token)
	if ottoErr == nil {
		return out, nil
	}
	return "", fmt.Errorf("goja: %v; otto: %v", gojaErr, ottoErr)
}
