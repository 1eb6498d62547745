package stdlib

import (
	"fmt"

	"rebar/internal/environment"
	"rebar/internal/value"
)

// installIO binds the script-visible output functions onto the
// Environment's own Stdout/Stdlog streams (§6 "set/get streams"), the
// same `print`/`log` pair the teacher's global builtins exposed.
func installIO(env *environment.Environment) {
	bindGlobal(env, "print", ioPrint)
	bindGlobal(env, "log", ioLog)
}

func joinArgs(env *environment.Environment, a []value.Value) string {
	out := ""
	for i, v := range a {
		if i > 0 {
			out += " "
		}
		out += env.ToDisplayString(v)
	}
	return out
}

func ioPrint(ret *value.Value, env *environment.Environment) {
	fmt.Fprintln(env.Stdout, joinArgs(env, args(env)))
	*ret = value.Nil
}

func ioLog(ret *value.Value, env *environment.Environment) {
	fmt.Fprintln(env.Stdlog, joinArgs(env, args(env)))
	*ret = value.Nil
}
