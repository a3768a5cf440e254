package lib

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// FilterOptions select which visits reach a callback.
type FilterOptions struct {
	// MinDepth hides visits shallower than it. They are still descended into.
	MinDepth int
	// MaxDepth stops descent below it. Negative means unlimited.
	MaxDepth int
	// Exclude holds glob patterns matched against entry names. Matching
	// entries are neither reported nor descended into. Roots are never excluded.
	Exclude []string
	// Types is a comma-separated list of find(1) -type letters to report,
	// or empty for all types.
	Types string
}

// Filter applies FilterOptions in front of a WalkFunc.
type Filter struct {
	minDepth int
	maxDepth int
	excludes []glob.Glob
	types    map[FileType]bool
}

const typeLetters = "bcdplfs"

// ParseTypes parses a comma-separated list of type letters.
func ParseTypes(list string) (map[FileType]bool, error) {
	if list == "" {
		return nil, nil
	}
	types := make(map[FileType]bool)
	for _, letter := range strings.Split(list, ",") {
		letter = strings.TrimSpace(letter)
		if len(letter) != 1 || !strings.Contains(typeLetters, letter) {
			return nil, errors.Errorf("unknown file type %q", letter)
		}
		for t := TypeBlock; t <= TypeSocket; t++ {
			if t.Letter() == letter[0] {
				types[t] = true
			}
		}
	}
	return types, nil
}

// NewFilter compiles the exclude patterns and type list of opts.
func NewFilter(opts FilterOptions) (*Filter, error) {
	filter := &Filter{minDepth: opts.MinDepth, maxDepth: opts.MaxDepth}
	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "bad exclude pattern %q", pattern)
		}
		filter.excludes = append(filter.excludes, g)
	}
	types, err := ParseTypes(opts.Types)
	if err != nil {
		return nil, err
	}
	filter.types = types
	return filter, nil
}

func (f *Filter) excluded(name string) bool {
	for _, g := range f.excludes {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Reports whether a visit passes the depth and type conditions.
func (f *Filter) reported(info *FileInfo) bool {
	if info.Depth < f.minDepth {
		return false
	}
	if f.maxDepth >= 0 && info.Depth > f.maxDepth {
		return false
	}
	return f.types == nil || f.types[info.Type]
}

// Wrap returns a WalkFunc that filters visits before calling fn. Error
// visits always reach fn.
func (f *Filter) Wrap(fn WalkFunc) WalkFunc {
	return func(info *FileInfo) Action {
		if info.Type == TypeError {
			return fn(info)
		}
		if info.Depth > 0 && len(f.excludes) > 0 && f.excluded(info.Name()) {
			return Prune
		}

		ret := Continue
		if f.reported(info) {
			ret = fn(info)
		}
		if ret == Continue && f.maxDepth >= 0 && info.Depth >= f.maxDepth {
			ret = Prune
		}
		return ret
	}
}
