package hooks

import "strings"

// EntityTitle is a wrap hook that gives entity tokens a title showing the
// character they stand for.
func EntityTitle(env *Env) {
	if env.Type != "entity" {
		return
	}
	env.Attributes.Set("title", strings.Replace(env.Content, "&amp;", "&", 1))
}
