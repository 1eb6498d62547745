package testing

import (
	"fmt"
	"strings"

	"rebar/internal/environment"
	"rebar/internal/value"
)

// assertCounter tallies one test file's assertion failures; it is not
// shared across files, each gets its own (see runFile).
type assertCounter struct {
	passed   int
	failed   int
	messages []string
}

func (c *assertCounter) fail(format string, a ...interface{}) {
	c.failed++
	c.messages = append(c.messages, fmt.Sprintf(format, a...))
}

func needArgs(env *environment.Environment, a []value.Value, n int) {
	if len(a) < n {
		env.Throw("TypeError", env.Intern([]byte(fmt.Sprintf("expected at least %d argument(s), got %d", n, len(a)))))
	}
}

// installAssertions binds the assert_* family a .rbr test file calls,
// grounded in the same names/messages the teacher's test builtins used.
func installAssertions(env *environment.Environment, c *assertCounter) {
	bind := func(name string, fn func(ret *value.Value, env *environment.Environment)) {
		env.SetGlobal(name, env.Bind(fn, name))
	}

	bind("assert", func(ret *value.Value, env *environment.Environment) {
		a := env.ArgSlot
		needArgs(env, a, 1)
		msg := displayMessage(env, a, 1)
		if !truthy(a[0]) {
			c.fail("assertion failed: %s", msg)
			*ret = value.MakeBool(false)
			return
		}
		c.passed++
		*ret = value.MakeBool(true)
	})

	bind("assert_true", func(ret *value.Value, env *environment.Environment) {
		a := env.ArgSlot
		needArgs(env, a, 1)
		msg := displayMessage(env, a, 1)
		if !truthy(a[0]) {
			c.fail("assert_true failed: %s", msg)
			*ret = value.MakeBool(false)
			return
		}
		c.passed++
		*ret = value.MakeBool(true)
	})

	bind("assert_false", func(ret *value.Value, env *environment.Environment) {
		a := env.ArgSlot
		needArgs(env, a, 1)
		msg := displayMessage(env, a, 1)
		if truthy(a[0]) {
			c.fail("assert_false failed: %s", msg)
			*ret = value.MakeBool(false)
			return
		}
		c.passed++
		*ret = value.MakeBool(true)
	})

	bind("assert_equal", func(ret *value.Value, env *environment.Environment) {
		a := env.ArgSlot
		needArgs(env, a, 2)
		msg := displayMessage(env, a, 2)
		if !valuesEqual(a[0], a[1]) {
			c.fail("assert_equal failed: %s\n  expected: %s\n  actual:   %s", msg, env.ToDisplayString(a[0]), env.ToDisplayString(a[1]))
			*ret = value.MakeBool(false)
			return
		}
		c.passed++
		*ret = value.MakeBool(true)
	})

	bind("assert_not_equal", func(ret *value.Value, env *environment.Environment) {
		a := env.ArgSlot
		needArgs(env, a, 2)
		msg := displayMessage(env, a, 2)
		if valuesEqual(a[0], a[1]) {
			c.fail("assert_not_equal failed: %s\n  both equal: %s", msg, env.ToDisplayString(a[0]))
			*ret = value.MakeBool(false)
			return
		}
		c.passed++
		*ret = value.MakeBool(true)
	})

	bind("assert_nil", func(ret *value.Value, env *environment.Environment) {
		a := env.ArgSlot
		needArgs(env, a, 1)
		msg := displayMessage(env, a, 1)
		if a[0].Tag != value.Null {
			c.fail("assert_nil failed: %s\n  value: %s", msg, env.ToDisplayString(a[0]))
			*ret = value.MakeBool(false)
			return
		}
		c.passed++
		*ret = value.MakeBool(true)
	})

	bind("assert_not_nil", func(ret *value.Value, env *environment.Environment) {
		a := env.ArgSlot
		needArgs(env, a, 1)
		msg := displayMessage(env, a, 1)
		if a[0].Tag == value.Null {
			c.fail("assert_not_nil failed: %s", msg)
			*ret = value.MakeBool(false)
			return
		}
		c.passed++
		*ret = value.MakeBool(true)
	})

	bind("assert_contains", func(ret *value.Value, env *environment.Environment) {
		a := env.ArgSlot
		needArgs(env, a, 2)
		msg := displayMessage(env, a, 2)
		container, item := a[0], a[1]
		found := false
		switch container.Tag {
		case value.Array:
			n := env.ArrayLen(container)
			for i := 0; i < n; i++ {
				v, _ := env.ArrayGet(container, i)
				if valuesEqual(v, item) {
					found = true
					break
				}
			}
		case value.String:
			s := string(env.StringBytes(container))
			needle := env.ToDisplayString(item)
			found = strings.Contains(s, needle)
		default:
			c.fail("assert_contains: unsupported container type %s", container.Tag)
			*ret = value.MakeBool(false)
			return
		}
		if !found {
			c.fail("assert_contains failed: %s\n  does not contain: %s", msg, env.ToDisplayString(item))
			*ret = value.MakeBool(false)
			return
		}
		c.passed++
		*ret = value.MakeBool(true)
	})
}

func truthy(v value.Value) bool {
	switch v.Tag {
	case value.Null:
		return false
	case value.Bool:
		return v.AsBool()
	case value.Int, value.Number:
		return v.AsInt() != 0 || v.AsNumber() != 0
	default:
		return true
	}
}

func valuesEqual(a, b value.Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	return a.Data == b.Data
}

func displayMessage(env *environment.Environment, a []value.Value, i int) string {
	if i >= len(a) {
		return ""
	}
	return env.ToDisplayString(a[i])
}
