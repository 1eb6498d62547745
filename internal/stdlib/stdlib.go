// Package stdlib installs the engine's native surface into an
// Environment: bound global functions and native classes built on top of
// the object protocol (internal/object) rather than baked into either
// execution provider, matching the teacher's "native classes wrap a Go
// value behind a v-table" convention for its own database/websocket
// integrations.
package stdlib

import (
	"fmt"

	"rebar/internal/environment"
	"rebar/internal/value"
)

// Install registers every native class and bound function this package
// provides into env's global table and class registry.
func Install(env *environment.Environment) {
	installDb(env)
	installSocket(env)
	installUUID(env)
	installCrypto(env)
	installStringMethods(env)
	installArrayMethods(env)
	installIO(env)
}

func bindGlobal(env *environment.Environment, name string, fn func(ret *value.Value, env *environment.Environment)) {
	env.SetGlobal(name, env.Bind(fn, name))
}

// args is the convenience accessor every native function/method uses to
// read its call's arguments out of the shared ArgSlot (§4.2).
func args(env *environment.Environment) []value.Value { return env.ArgSlot }

func argError(env *environment.Environment, format string, a ...interface{}) {
	env.Throw("TypeError", env.Intern([]byte(fmt.Sprintf(format, a...))))
}

func checkArgc(env *environment.Environment, want int) []value.Value {
	a := args(env)
	if len(a) != want {
		argError(env, "expected %d argument(s), got %d", want, len(a))
	}
	return a
}

func argString(env *environment.Environment, a []value.Value, i int) string {
	if i >= len(a) || a[i].Tag != value.String {
		argError(env, "argument %d must be a string", i)
	}
	return string(env.StringBytes(a[i]))
}

func argInt(env *environment.Environment, a []value.Value, i int) int64 {
	if i >= len(a) || !a[i].IsNumeric() {
		argError(env, "argument %d must be numeric", i)
	}
	if a[i].Tag == value.Number {
		return int64(a[i].AsNumber())
	}
	return a[i].AsInt()
}
