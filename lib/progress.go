package lib

import (
	"io"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
)

// ProgressCounts holds visit counters for the summary and the spinner.
// Exported fields so main can read them with atomic loads.
type ProgressCounts struct {
	Files  int64
	Dirs   int64
	Errors int64
	// Bytes is the total size of the visited regular files whose size is known.
	Bytes int64
}

// Record counts one pre-order visit. Post-order visits are not counted.
func (p *ProgressCounts) Record(info *FileInfo) {
	if info.Phase != PhasePre {
		return
	}
	switch info.Type {
	case TypeError:
		atomic.AddInt64(&p.Errors, 1)
	case TypeDir:
		atomic.AddInt64(&p.Dirs, 1)
	default:
		atomic.AddInt64(&p.Files, 1)
		if info.Type == TypeReg {
			if st := info.CachedStat(info.StatFlags); st != nil {
				atomic.AddInt64(&p.Bytes, st.Size)
			}
		}
	}
}

// Visited is the number of pre-order visits counted so far.
func (p *ProgressCounts) Visited() int64 {
	return atomic.LoadInt64(&p.Files) + atomic.LoadInt64(&p.Dirs) + atomic.LoadInt64(&p.Errors)
}

// Spinner is an indeterminate progress indicator for walks whose output is
// held back until the walk finishes.
type Spinner struct {
	bar *progressbar.ProgressBar
}

// NewSpinner draws a spinner on w. A nil w gives a spinner that draws nothing.
func NewSpinner(w io.Writer, describe string) *Spinner {
	if w == nil {
		return &Spinner{}
	}
	return &Spinner{bar: progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(describe),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionClearOnFinish(),
	)}
}

// Increment advances the spinner by one visit.
func (s *Spinner) Increment() {
	if s.bar != nil {
		_ = s.bar.Add(1)
	}
}

// Finish clears the spinner.
func (s *Spinner) Finish() {
	if s.bar != nil {
		_ = s.bar.Finish()
	}
}
