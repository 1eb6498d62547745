// Package repl implements an interactive read-eval-print loop against a
// single, already-configured Environment (§4.2): each line is compiled as
// its own top-level unit and run through the public Call API (§6), so a
// thrown exception ends that line, not the session.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"rebar/internal/environment"
	"rebar/internal/value"
)

// Start runs the loop against stdin/stdout until EOF or "exit". env must
// already have ActiveProvider (and anything stdlib.Install adds) set up.
func Start(env *environment.Environment) {
	color := isatty.IsTerminal(os.Stdout.Fd())
	run(env, os.Stdin, os.Stdout, os.Stderr, color)
}

func run(env *environment.Environment, stdin io.Reader, stdout, stderr io.Writer, color bool) {
	prompt := ">>> "
	if color {
		prompt = "\x1b[36m>>> \x1b[0m"
	}

	in := bufio.NewScanner(stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1<<20)

	fmt.Fprintf(stdout, "rebar REPL (provider: %s) — type 'exit' to quit\n", env.ActiveProvider.Name())
	for line := 1; ; line++ {
		fmt.Fprint(stdout, prompt)
		if !in.Scan() {
			if err := in.Err(); err != nil && err != io.EOF {
				fmt.Fprintln(stderr, err)
			}
			fmt.Fprintln(stdout)
			return
		}
		src := in.Text()
		if src == "exit" || src == "quit" {
			return
		}
		if src == "" {
			continue
		}
		evalLine(env, src, line, stdout, stderr, color)
	}
}

// evalLine tries src as a bare expression first so typing "3 + 4" echoes
// its value the way a REPL user expects, without requiring an explicit
// `return`. Anything that isn't a single expression (a `local` decl, an
// assignment, a loop, ...) fails this parse and falls through to being
// compiled as-is, in which case only a non-null result (from the line's
// own `return`) is echoed.
func evalLine(env *environment.Environment, src string, line int, stdout, stderr io.Writer, color bool) {
	name := fmt.Sprintf("<repl:%d>", line)

	bare := strings.TrimSuffix(strings.TrimSpace(src), ";")
	fn, err := env.CompileSource([]byte("return ("+bare+");"), environment.CompileInfo{Name: name})
	fallback := false
	if err != nil {
		fn, err = env.CompileSource([]byte(src), environment.CompileInfo{Name: name})
		fallback = true
	}
	if err != nil {
		printErr(stderr, err.Error(), color)
		return
	}
	result, err := env.Call(fn, nil)
	if err != nil {
		if rerr, ok := err.(*environment.RuntimeError); ok {
			printErr(stderr, environment.RenderError(rerr, env.ToDisplayString), color)
			return
		}
		printErr(stderr, err.Error(), color)
		return
	}
	if fallback && result.Tag == value.Null {
		return
	}
	fmt.Fprintln(stdout, env.ToDisplayString(result))
}

func printErr(stderr io.Writer, msg string, color bool) {
	if color {
		fmt.Fprintf(stderr, "\x1b[31m%s\x1b[0m\n", msg)
		return
	}
	fmt.Fprintln(stderr, msg)
}
