package packpipe

import "github.com/gobwas/glob"

// excludeFilter compiles a list of glob patterns (spec §4.5.2: "a list
// of glob patterns matched against the logical path") once per pack
// run and tests candidate paths against all of them.
type excludeFilter struct {
	globs []glob.Glob
}

func newExcludeFilter(patterns []string) (*excludeFilter, error) {
	f := &excludeFilter{globs: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		f.globs = append(f.globs, g)
	}
	return f, nil
}

func (f *excludeFilter) excludes(relPath string) bool {
	for _, g := range f.globs {
		if g.Match(relPath) {
			return true
		}
	}
	return false
}
