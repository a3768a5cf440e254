package lib

import (
	"github.com/google/btree"
)

type prunedPath string

func (p prunedPath) Less(than btree.Item) bool { return p < than.(prunedPath) }

// prunedSet remembers the directories the callback pruned, so that later
// passes do not descend into them again.
type prunedSet struct {
	tree *btree.BTree
}

func newPrunedSet() *prunedSet {
	return &prunedSet{tree: btree.New(16)}
}

func (p *prunedSet) add(path string) { p.tree.ReplaceOrInsert(prunedPath(path)) }

func (p *prunedSet) has(path string) bool { return p.tree.Has(prunedPath(path)) }

func (p *prunedSet) clear() { p.tree.Clear(false) }

// deepening runs repeated depth-limited passes of the depth-first engine and
// forwards only the visits in the current [minDepth, maxDepth) window.
type deepening struct {
	delegate WalkFunc
	phase    Phase
	// forcePost delivers pre-order visits of directories as post-order ones.
	forcePost bool

	minDepth int
	maxDepth int
	// bottom stays set for a pass that found nothing deeper to explore.
	bottom bool
	quit   bool
	passes int

	pruned *prunedSet
}

func (d *deepening) callback(info *FileInfo) Action {
	if info.Type == TypeError {
		if d.phase == PhasePost {
			return Prune
		}
		// An unreadable directory is reported by the first pass that opens
		// it, any other error by the first pass whose window holds it.
		depth := info.Depth
		if info.readErr {
			depth++
		}
		if depth < d.minDepth {
			return Prune
		}
		return d.handle(info, d.delegate(info))
	}

	if info.Depth < d.minDepth {
		if d.pruned.has(info.Path) {
			return Prune
		}
		return Continue
	}
	if d.phase == PhasePost && d.pruned.has(info.Path) {
		return Prune
	}

	ret := Continue
	if info.Phase == d.phase {
		ret = d.delegate(info)
	} else if d.forcePost && info.Type == TypeDir {
		info.Phase = d.phase
		ret = d.delegate(info)
		info.Phase = PhasePre
	}
	return d.handle(info, ret)
}

func (d *deepening) handle(info *FileInfo, ret Action) Action {
	switch ret {
	case Continue:
		if info.Type == TypeDir && info.Depth+1 >= d.maxDepth {
			d.bottom = false
			ret = Prune
		}
	case Prune:
		if info.Type == TypeDir {
			d.pruned.add(info.Path)
		}
	case Stop:
		d.quit = true
	}
	return ret
}

func (d *deepening) pass(args *WalkArgs) error {
	d.passes++
	return walkEngine(args)
}

// runDeepening drives the passes and returns how many it made.
func runDeepening(args *WalkArgs, exponential bool) (int, error) {
	d := &deepening{
		delegate: args.Callback,
		phase:    PhasePre,
		minDepth: 0,
		maxDepth: 1,
		pruned:   newPrunedSet(),
	}
	defer d.pruned.clear()

	inner := *args
	inner.Callback = d.callback
	inner.Flags &^= FlagPostOrder
	inner.Strategy = StrategyDFS

	for !d.quit && !d.bottom {
		d.bottom = true
		if err := d.pass(&inner); err != nil {
			return d.passes, err
		}
		if exponential {
			d.minDepth = d.maxDepth
			d.maxDepth *= 2
		} else {
			d.minDepth++
			d.maxDepth++
		}
	}

	if d.quit || args.Flags&FlagPostOrder == 0 {
		return d.passes, nil
	}

	d.phase = PhasePost
	if exponential {
		d.minDepth = 0
		inner.Flags |= FlagPostOrder
		return d.passes, d.pass(&inner)
	}

	d.forcePost = true
	for !d.quit && d.minDepth > 0 {
		d.minDepth--
		d.maxDepth--
		if err := d.pass(&inner); err != nil {
			return d.passes, err
		}
	}
	return d.passes, nil
}

func walkDeepening(args *WalkArgs, exponential bool) error {
	_, err := runDeepening(args, exponential)
	return err
}
