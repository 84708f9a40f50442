package identity

import (
	"strings"
	"time"

	"mri-deid/internal/config"
)

// tokenLayout yields a 14-digit second-resolution stamp; the leading century
// digits are dropped to match the fixed 12-digit token width.
const tokenLayout = "20060102150405"

// Generator derives the per-session timestamp token. It remembers the last
// session directory and token it produced, so consecutive folders belonging
// to the same visit reuse one token while distinct visits always get a fresh
// one. Each worker owns exactly one Generator; the state is passed
// explicitly with every call, never hidden in package globals.
type Generator struct {
	pairs []config.CategoryPair

	lastDir   string
	lastToken string

	// now is swappable for tests.
	now func() time.Time
}

func NewGenerator(pairs []config.CategoryPair) *Generator {
	return &Generator{
		pairs: pairs,
		now:   time.Now,
	}
}

// TokenFor returns the timestamp token for the session directory. Two
// directories differing only by the two halves of a configured category pair
// describe the same visit and share the previous token. A new visit gets a
// token generated fresh until it differs from the previous one, which guards
// against two sessions landing on the same clock tick.
func (g *Generator) TokenFor(dir string) string {
	if g.lastToken != "" && g.sameVisit(dir) {
		g.lastDir = dir
		return g.lastToken
	}

	token := g.stamp()
	for token == g.lastToken {
		token = g.stamp()
	}

	g.lastDir = dir
	g.lastToken = token
	return token
}

func (g *Generator) sameVisit(dir string) bool {
	for _, p := range g.pairs {
		if strings.ReplaceAll(dir, p.A, p.B) == g.lastDir {
			return true
		}
		if strings.ReplaceAll(dir, p.B, p.A) == g.lastDir {
			return true
		}
	}
	return false
}

func (g *Generator) stamp() string {
	return g.now().Format(tokenLayout)[2:]
}

// BuildID combines the timestamp token with the raw session token into the
// pseudonymous patient identifier {token}{session}M, padded with one
// trailing space when the length is odd (consuming tooling expects even
// length).
func BuildID(token, sessionToken string) string {
	id := token + sessionToken + "M"
	if len(id)%2 != 0 {
		id += " "
	}
	return id
}
