package celcontext

import (
	"strings"

	"cel/internal/celvalue"
)

// Candidates generates the qualified-name resolution order for a dotted
// identifier `name` evaluated within `container` (§4.8). For a container
// `a.b.c` and name `R.s`, candidates are, in order: `a.b.c.R.s`, `a.b.R.s`,
// `a.R.s`, `R.s`. A leading dot in name is absolute: the only candidate is
// name with the leading dot stripped. An empty container yields a single
// candidate: name itself.
func Candidates(container, name string) []string {
	if strings.HasPrefix(name, ".") {
		return []string{name[1:]}
	}
	if container == "" {
		return []string{name}
	}
	parts := strings.Split(container, ".")
	candidates := make([]string, 0, len(parts)+1)
	for i := len(parts); i > 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		candidates = append(candidates, prefix+"."+name)
	}
	candidates = append(candidates, name)
	return candidates
}

// ResolveVariable tries each container candidate in order, returning the
// first one that resolves (§4.8). Resolution failure for all candidates is
// reported by the caller as UndeclaredReference.
func (c *Context) ResolveVariable(name string) (celvalue.Value, bool) {
	for _, cand := range Candidates(c.container, name) {
		if v, ok := c.Lookup(cand); ok {
			return v, true
		}
	}
	return celvalue.Value{}, false
}
