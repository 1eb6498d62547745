package stdlib

import (
	"github.com/dustin/go-humanize"
	"golang.org/x/crypto/bcrypt"

	"rebar/internal/environment"
	"rebar/internal/value"
)

func installCrypto(env *environment.Environment) {
	bindGlobal(env, "bcrypt_hash", bcryptHash)
	bindGlobal(env, "bcrypt_verify", bcryptVerify)
	bindGlobal(env, "humanize_bytes", humanizeBytes)
}

func bcryptHash(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	pw := argString(env, a, 0)
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		argError(env, "bcrypt_hash failed: %v", err)
	}
	*ret = env.Intern(hash)
}

func bcryptVerify(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 2)
	pw := argString(env, a, 0)
	hash := argString(env, a, 1)
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	*ret = value.MakeBool(err == nil)
}

// humanize_bytes renders a byte count the way progress/size output is
// reported back to a script's caller, e.g. `humanize_bytes(2048)` -> "2.0 kB".
func humanizeBytes(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	n := argInt(env, a, 0)
	*ret = env.Intern([]byte(humanize.Bytes(uint64(n))))
}
