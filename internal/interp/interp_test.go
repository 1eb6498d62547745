package interp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestTableAndArrayLiterals(t *testing.T) {
	env := newEnv(t)
	src := `
		local t = { x = 1, y = 2 };
		local arr = [1, 2, 3];
		return t.x + arr[2];
	`
	assert.Equal(t, "4", run(t, env, src))
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

// TestThrownExceptionCarriesStackTrace is a regression test: the panic
// that unwinds out of a throw used to pop every frame (via each Invoke's
// deferred PopFrame) before Call's recover handler ever looked at
// e.StackTrace, so the reported trace was always empty.
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
