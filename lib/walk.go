package lib

import (
	"golang.org/x/sys/unix"
)

// Action is returned by a WalkFunc to steer the walk.
type Action int

const (
	// Continue walking; directories are descended into.
	Continue Action = iota
	// Prune skips the children of the current directory.
	Prune
	// Stop ends the walk immediately.
	Stop
)

var actionNames = [...]string{"continue", "prune", "stop"}

func (a Action) String() string {
	if a < Continue || a > Stop {
		return "unknown"
	}
	return actionNames[a]
}

// Phase tells whether a visit happens before or after a directory's children.
type Phase int

const (
	// PhasePre is the first visit of a file, before any of its children.
	PhasePre Phase = iota
	// PhasePost is the visit of a directory after all of its children.
	PhasePost
)

func (p Phase) String() string {
	if p == PhasePost {
		return "post"
	}
	return "pre"
}

// Flags control the behaviour of Walk.
type Flags uint

const (
	// FlagStat stats every file, even when the directory entry type is enough.
	FlagStat Flags = 1 << iota
	// FlagRecover delivers per-file errors to the callback instead of aborting.
	FlagRecover
	// FlagPostOrder visits directories a second time after their children.
	FlagPostOrder
	// FlagFollowRoots follows symlinks given as root paths.
	FlagFollowRoots
	// FlagFollowAll follows every symlink.
	FlagFollowAll
	// FlagDetectCycles reports directories that are their own ancestors as ELOOP.
	FlagDetectCycles
	// FlagSkipMounts does not visit mount points at all.
	FlagSkipMounts
	// FlagPruneMounts visits mount points but does not descend into them.
	FlagPruneMounts
	// FlagSort delivers each directory's entries in locale order.
	FlagSort
	// FlagBuffer reads a whole directory before visiting any of its entries.
	FlagBuffer
)

// Strategy selects the traversal order.
type Strategy int

const (
	// StrategyBFS visits files in breadth-first order.
	StrategyBFS Strategy = iota
	// StrategyDFS visits files in depth-first order.
	StrategyDFS
	// StrategyIDS uses iterative deepening: repeated depth-limited passes.
	StrategyIDS
	// StrategyEDS uses exponential deepening: passes whose depth limit doubles.
	StrategyEDS
)

var strategyNames = [...]string{"bfs", "dfs", "ids", "eds"}

func (s Strategy) String() string {
	if s < StrategyBFS || s > StrategyEDS {
		return "unknown"
	}
	return strategyNames[s]
}

// ParseStrategy parses the name of a strategy ("bfs", "dfs", "ids", "eds").
func ParseStrategy(name string) (Strategy, bool) {
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), true
		}
	}
	return StrategyBFS, false
}

// WalkFunc is called once per visit. The *FileInfo is only valid for the
// duration of the call.
type WalkFunc func(info *FileInfo) Action

// WalkArgs are the arguments to Walk.
type WalkArgs struct {
	// Paths are the root paths to walk, in order.
	Paths []string
	// Callback is invoked for every visit.
	Callback WalkFunc
	// MaxOpenFDs bounds the number of descriptors the walk keeps open. Must be at least 2.
	MaxOpenFDs int
	Flags      Flags
	Strategy   Strategy
	// Mtab is optional; on Linux it lets the walk spot bind mounts whose
	// directory entry type is inherited from the mounted-over file.
	Mtab MountTable
}

// Walk visits every file reachable from args.Paths. It returns nil on
// success and the first error otherwise; a Stop from the callback is not an
// error. All descriptors are released before Walk returns.
func Walk(args *WalkArgs) error {
	if args == nil || len(args.Paths) == 0 || args.Callback == nil || args.MaxOpenFDs < 2 {
		return unix.EINVAL
	}
	switch args.Strategy {
	case StrategyBFS, StrategyDFS:
		return walkEngine(args)
	case StrategyIDS:
		return walkDeepening(args, false)
	case StrategyEDS:
		return walkDeepening(args, true)
	default:
		return unix.EINVAL
	}
}

// walkEngine runs a single pass with whichever engine fits the requested order.
func walkEngine(args *WalkArgs) error {
	state := newWalkState(args)
	if args.Strategy == StrategyDFS || args.Flags&(FlagSort|FlagBuffer) != 0 {
		return state.batch(args.Paths)
	}
	return state.stream(args.Paths)
}
