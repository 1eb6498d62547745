package stdlib

import (
	"strings"

	"rebar/internal/environment"
	"rebar/internal/value"
)

// installStringMethods fills in the engine's shared string v-table
// (§4.3's per-type method table) with the dot-methods every string value
// answers to: `"x".upper()`.
func installStringMethods(env *environment.Environment) {
	vt := env.StringVTable()
	vt.Methods["length"] = env.Bind(strLength, "string.length")
	vt.Methods["upper"] = env.Bind(strUpper, "string.upper")
	vt.Methods["lower"] = env.Bind(strLower, "string.lower")
	vt.Methods["trim"] = env.Bind(strTrim, "string.trim")
	vt.Methods["split"] = env.Bind(strSplit, "string.split")
	vt.Methods["contains"] = env.Bind(strContains, "string.contains")
	vt.Methods["replace"] = env.Bind(strReplace, "string.replace")
	vt.Methods["starts_with"] = env.Bind(strStartsWith, "string.starts_with")
	vt.Methods["ends_with"] = env.Bind(strEndsWith, "string.ends_with")
}

func strSelf(env *environment.Environment, a []value.Value) string {
	if len(a) < 1 || a[0].Tag != value.String {
		argError(env, "method called on a non-string receiver")
	}
	return string(env.StringBytes(a[0]))
}

func strLength(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	*ret = value.MakeInt(int64(len([]rune(strSelf(env, a)))))
}

func strUpper(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	*ret = env.Intern([]byte(strings.ToUpper(strSelf(env, a))))
}

func strLower(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	*ret = env.Intern([]byte(strings.ToLower(strSelf(env, a))))
}

func strTrim(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	*ret = env.Intern([]byte(strings.TrimSpace(strSelf(env, a))))
}

func strSplit(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 2)
	s := strSelf(env, a)
	sep := argString(env, a, 1)
	parts := strings.Split(s, sep)
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = env.Intern([]byte(p))
	}
	*ret = env.NewArray(out)
}

func strContains(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 2)
	*ret = value.MakeBool(strings.Contains(strSelf(env, a), argString(env, a, 1)))
}

func strReplace(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 3)
	s := strSelf(env, a)
	old := argString(env, a, 1)
	new := argString(env, a, 2)
	*ret = env.Intern([]byte(strings.ReplaceAll(s, old, new)))
}

func strStartsWith(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 2)
	*ret = value.MakeBool(strings.HasPrefix(strSelf(env, a), argString(env, a, 1)))
}

func strEndsWith(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 2)
	*ret = value.MakeBool(strings.HasSuffix(strSelf(env, a), argString(env, a, 1)))
}

// installArrayMethods fills in the shared array v-table with the
// dot-methods every array value answers to: `[1,2].push(3)`.
func installArrayMethods(env *environment.Environment) {
	vt := env.ArrayVTable()
	vt.Methods["length"] = env.Bind(arrLength, "array.length")
	vt.Methods["push"] = env.Bind(arrPush, "array.push")
	vt.Methods["pop"] = env.Bind(arrPop, "array.pop")
	vt.Methods["join"] = env.Bind(arrJoin, "array.join")
	vt.Methods["contains"] = env.Bind(arrContains, "array.contains")
	vt.Methods["slice"] = env.Bind(arrSlice, "array.slice")
}

func arrSelf(env *environment.Environment, a []value.Value) value.Value {
	if len(a) < 1 || a[0].Tag != value.Array {
		argError(env, "method called on a non-array receiver")
	}
	return a[0]
}

func arrLength(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	*ret = value.MakeInt(int64(env.ArrayLen(arrSelf(env, a))))
}

func arrPush(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 2)
	self := arrSelf(env, a)
	env.ArrayAppend(self, a[1])
	*ret = self
}

func arrPop(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	self := arrSelf(env, a)
	n := env.ArrayLen(self)
	if n == 0 {
		argError(env, "pop on an empty array")
	}
	v, _ := env.ArrayGet(self, n-1)
	env.ArraySet(self, n-1, value.Nil)
	*ret = v
}

func arrJoin(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 2)
	self := arrSelf(env, a)
	sep := argString(env, a, 1)
	n := env.ArrayLen(self)
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		v, _ := env.ArrayGet(self, i)
		parts[i] = env.ToDisplayString(v)
	}
	*ret = env.Intern([]byte(strings.Join(parts, sep)))
}

func arrContains(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 2)
	self := arrSelf(env, a)
	n := env.ArrayLen(self)
	found := false
	for i := 0; i < n; i++ {
		v, _ := env.ArrayGet(self, i)
		if v.Tag == a[1].Tag && v.Data == a[1].Data {
			found = true
			break
		}
	}
	*ret = value.MakeBool(found)
}

func arrSlice(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 3)
	self := arrSelf(env, a)
	lo := int(argInt(env, a, 1))
	hi := int(argInt(env, a, 2))
	*ret = env.ArrayView(self, lo, hi)
}
