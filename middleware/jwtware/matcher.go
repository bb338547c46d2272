package jwtware

import (
	"strings"

	"github.com/gobwas/glob"
)

// PathMatcher matches request paths against ant style patterns.
// "*" matches within one segment, "**" across segments, and a trailing
// "/**" also matches the bare prefix.
type PathMatcher struct {
	globs []glob.Glob
}

// NewPathMatcher compiles patterns
func NewPathMatcher(patterns ...string) (*PathMatcher, error) {
	m := &PathMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		m.globs = append(m.globs, g)

		if base, ok := strings.CutSuffix(p, "/**"); ok && base != "" {
			g, err := glob.Compile(base, '/')
			if err != nil {
				return nil, err
			}
			m.globs = append(m.globs, g)
		}
	}
	return m, nil
}

// Match reports whether path matches any pattern
func (m *PathMatcher) Match(path string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
