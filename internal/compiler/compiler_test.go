package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebar/internal/compiler"
	"rebar/internal/environment"
	"rebar/internal/interp"
)

func newEnv(t *testing.T) *environment.Environment {
	t.Helper()
	env := environment.New()
	env.Compiler = compiler.New()
	env.ActiveProvider = env.Compiler
	return env
}

func run(t *testing.T, env *environment.Environment, src string) interface{} {
	t.Helper()
	fn, err := env.CompileSource([]byte(src), environment.CompileInfo{Name: "<test>"})
	require.NoError(t, err)
	v, err := env.Call(fn, nil)
	require.NoError(t, err)
	return env.ToDisplayString(v)
}

func TestArithmeticReturn(t *testing.T) {
	env := newEnv(t)
	assert.Equal(t, "7", run(t, env, "return 1 + 2 * 3;"))
}

func TestLocalsAndControlFlow(t *testing.T) {
	env := newEnv(t)
	src := `
		local total = 0;
		for (local i = 0; i < 5; i = i + 1) {
			total = total + i;
		}
		return total;
	`
	assert.Equal(t, "10", run(t, env, src))
}

func TestFunctionDeclAndCall(t *testing.T) {
	env := newEnv(t)
	src := `
		function add(a, b) {
			return a + b;
		}
		return add(4, 5);
	`
	assert.Equal(t, "9", run(t, env, src))
}

func TestThrownExceptionSurfacesAsRuntimeError(t *testing.T) {
	env := newEnv(t)
	fn, err := env.CompileSource([]byte(`
		local a = [1, 2];
		return a[9];
	`), environment.CompileInfo{Name: "<test>"})
	require.NoError(t, err)

	_, callErr := env.Call(fn, nil)
	require.Error(t, callErr)
	rerr, ok := callErr.(*environment.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, "RangeError", rerr.Type)
}

// TestThrownExceptionCarriesStackTrace mirrors interp's regression test
// for the same fix: the panic that unwinds out of a throw used to pop
// every frame before Call's recover handler ever looked at it.
func TestThrownExceptionCarriesStackTrace(t *testing.T) {
	env := newEnv(t)
	fn, err := env.CompileSource([]byte(`
		function boom() {
			local a = [1];
			return a[9];
		}
		return boom();
	`), environment.CompileInfo{Name: "<test>"})
	require.NoError(t, err)

	_, callErr := env.Call(fn, nil)
	require.Error(t, callErr)
	rerr, ok := callErr.(*environment.RuntimeError)
	require.True(t, ok)
	require.NotEmpty(t, rerr.StackTrace)
	assert.Equal(t, "boom", rerr.StackTrace[len(rerr.StackTrace)-1].Function)
	assert.Equal(t, 6, rerr.StackTrace[len(rerr.StackTrace)-1].Line)
}

// TestArrayCompoundAddMutatesInPlace is a regression test: the compiler
// used to lower every compound assignment, "+=" included, to a plain
// Add-and-store, which allocates a new array instead of mutating the
// receiver in place the way the interpreter (and object.AddAssign) do.
// An aliased array would then silently diverge between providers.
func TestArrayCompoundAddMutatesInPlace(t *testing.T) {
	env := newEnv(t)
	src := `
		local a = [1, 2];
		local b = a;
		a += 3;
		return b[2];
	`
	assert.Equal(t, "3", run(t, env, src))
}

// TestProviderParity exercises the same scripts through both execution
// providers and checks they agree, per spec.md's "interchangeable
// providers" requirement (§4.4/§4.5).
func TestProviderParity(t *testing.T) {
	scripts := []string{
		"return 2 ** 10;",
		"return (1 + 2) * 3 - 4 / 2;",
		`local s = "ab"; return s * 3;`,
		`local t = { a = 1 }; t.a = t.a + 1; return t.a;`,
	}
	for _, src := range scripts {
		compiled := newEnv(t)
		got := run(t, compiled, src)

		interpreted := environment.New()
		interpreted.Interp = interp.New()
		interpreted.ActiveProvider = interpreted.Interp
		want := run(t, interpreted, src)

		assert.Equal(t, want, got, src)
	}
}
