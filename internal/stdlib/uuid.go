package stdlib

import (
	"github.com/google/uuid"

	"rebar/internal/environment"
	"rebar/internal/value"
)

func installUUID(env *environment.Environment) {
	bindGlobal(env, "uuid_v4", uuidV4)
	bindGlobal(env, "uuid_parse", uuidParse)
}

func uuidV4(ret *value.Value, env *environment.Environment) {
	checkArgc(env, 0)
	*ret = env.Intern([]byte(uuid.New().String()))
}

// uuidParse validates a string as a UUID and returns its canonical form,
// throwing TypeError if it isn't one.
func uuidParse(ret *value.Value, env *environment.Environment) {
	a := checkArgc(env, 1)
	s := argString(env, a, 0)
	id, err := uuid.Parse(s)
	if err != nil {
		argError(env, "invalid uuid: %v", err)
	}
	*ret = env.Intern([]byte(id.String()))
}
