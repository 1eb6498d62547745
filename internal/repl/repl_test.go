package repl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"rebar/internal/environment"
	"rebar/internal/interp"
)

func newEnv(t *testing.T) *environment.Environment {
	t.Helper()
	env := environment.New()
	env.Interp = interp.New()
	env.ActiveProvider = env.Interp
	return env
}

func TestBareExpressionEchoesValue(t *testing.T) {
	env := newEnv(t)
	var out, errOut strings.Builder
	run(env, strings.NewReader("3 + 4\nexit\n"), &out, &errOut, false)
	assert.Contains(t, out.String(), ">>> 7\n")
}

func TestLocalDeclFallsBackWithoutEcho(t *testing.T) {
	env := newEnv(t)
	var out, errOut strings.Builder
	run(env, strings.NewReader("local x = 5;\nexit\n"), &out, &errOut, false)
	assert.NotContains(t, out.String(), "\n5\n")
}

func TestGlobalFunctionDeclSurvivesAcrossLines(t *testing.T) {
	// Unlike `local`, a top-level `function` declaration lands in the
	// shared Environment's globals (VisitFunctionDecl), so it is visible
	// to later lines in the same session even though each line compiles
	// as its own independent top-level unit with a fresh local scope.
	env := newEnv(t)
	var out, errOut strings.Builder
	run(env, strings.NewReader("function inc(n) { return n + 1; }\ninc(5)\nexit\n"), &out, &errOut, false)
	assert.Contains(t, out.String(), ">>> 6\n")
}

func TestThrownExceptionPrintsToStderrAndContinues(t *testing.T) {
	env := newEnv(t)
	var out, errOut strings.Builder
	run(env, strings.NewReader("local a = [1]; return a[9];\n1 + 1\nexit\n"), &out, &errOut, false)
	assert.Contains(t, errOut.String(), "RangeError")
	assert.Contains(t, out.String(), ">>> 2\n")
}
