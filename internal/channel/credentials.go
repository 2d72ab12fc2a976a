package channel

import (
	"fmt"
	"sort"

	"newsbot/internal/domain"
)

// Credentials maps a workspace or guild id to its bot token. It is read-only
// after construction.
type Credentials struct {
	tokens   map[string]string
	fallback string
}

// NewCredentials copies tokens. fallback, when non-empty, serves any
// workspace without its own entry.
func NewCredentials(tokens map[string]string, fallback string) Credentials {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return Credentials{tokens: cp, fallback: fallback}
}

// Token returns the token for workspace.
func (c Credentials) Token(workspace string) (string, error) {
	if t, ok := c.tokens[workspace]; ok && t != "" {
		return t, nil
	}
	if c.fallback != "" {
		return c.fallback, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrWorkspaceNotConfigured, workspace)
}

// Workspaces lists the explicitly configured ids, sorted.
func (c Credentials) Workspaces() []string {
	out := make([]string, 0, len(c.tokens))
	for k := range c.tokens {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// allowList is an optional set of user ids permitted to trigger runs.
type allowList map[string]bool

func newAllowList(ids []string) allowList {
	if len(ids) == 0 {
		return nil
	}
	a := make(allowList, len(ids))
	for _, id := range ids {
		a[id] = true
	}
	return a
}

// permits reports whether user may trigger; an empty list permits everyone.
func (a allowList) permits(user string) bool {
	return len(a) == 0 || a[user]
}
