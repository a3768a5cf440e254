package lib

import (
	"time"

	"github.com/pkg/errors"
)

// Record is the serializable result of one reported visit.
type Record struct {
	Path  string    `json:"path" yaml:"path"`
	Type  string    `json:"type" yaml:"type"`
	Depth int       `json:"depth" yaml:"depth"`
	Phase string    `json:"phase" yaml:"phase"`
	Size  int64     `json:"size" yaml:"size"`
	Mode  uint32    `json:"mode,omitempty" yaml:"mode,omitempty"`
	Mtime time.Time `json:"mtime,omitempty" yaml:"mtime,omitempty"`
	Hash  string    `json:"hash,omitempty" yaml:"hash,omitempty"`
	Err   string    `json:"error,omitempty" yaml:"error,omitempty"`

	// Error is the error behind Err.
	Error error `json:"-" yaml:"-"`
}

// CollectOptions control what CollectRecords records for each visit.
type CollectOptions struct {
	// Filter, if set, decides which visits become records.
	Filter *Filter
	// Stat fills Size, Mode and Mtime.
	Stat bool
	// Hash names the algorithm to hash regular files with, or is empty.
	Hash          string
	HashThreshold int
	// Progress, if set, counts every reported visit.
	Progress *ProgressCounts
	// PostOrder records directories after their contents, at the post-order
	// visit. A directory that is not descended into is recorded at its
	// pre-order visit instead. The walk needs FlagPostOrder.
	PostOrder bool
	// Emit, if set, receives each record as it is made and nothing is
	// collected. An Emit error stops the walk.
	Emit func(Record) error
}

// NewRecord builds a record for info.
func NewRecord(info *FileInfo, opts *CollectOptions) Record {
	record := Record{
		Path:  info.Path,
		Type:  info.Type.String(),
		Depth: info.Depth,
		Phase: info.Phase.String(),
	}
	if info.Type == TypeError {
		record.Error = info.Err
		record.Err = info.Err.Error()
		return record
	}

	if opts.Stat || opts.Hash != "" {
		if st, err := info.Stat(info.StatFlags); err == nil {
			record.Size = st.Size
			record.Mode = st.Mode
			record.Mtime = st.Mtime
		}
	}
	if opts.Hash != "" && info.Type == TypeReg && info.Phase == PhasePre {
		threshold := opts.HashThreshold
		if threshold <= 0 {
			threshold = DefaultHashThreshold
		}
		hash, err := HashVisit(info, opts.Hash, threshold)
		if err != nil {
			record.Error = errors.Wrap(err, "hash")
			record.Err = record.Error.Error()
		}
		record.Hash = hash
	}
	return record
}

// CollectRecords walks args.Paths and returns one record per reported
// visit, in visit order. args.Callback is replaced. Per-file errors are
// records, not a returned error, when args.Flags has FlagRecover.
func CollectRecords(args WalkArgs, opts CollectOptions) ([]Record, error) {
	var records []Record
	var emitErr error
	var pending *Record

	emit := func(record Record) Action {
		if opts.Emit != nil {
			if err := opts.Emit(record); err != nil {
				emitErr = err
				return Stop
			}
			return Continue
		}
		records = append(records, record)
		return Continue
	}

	report := func(info *FileInfo) Action {
		if opts.Progress != nil {
			opts.Progress.Record(info)
		}
		record := NewRecord(info, &opts)
		if opts.PostOrder && info.Type == TypeDir && info.Phase == PhasePre {
			pending = &record
			return Continue
		}
		return emit(record)
	}

	callback := WalkFunc(report)
	if opts.Filter != nil {
		callback = opts.Filter.Wrap(report)
	}
	args.Callback = func(info *FileInfo) Action {
		ret := callback(info)
		if pending != nil {
			record := *pending
			pending = nil
			if (ret != Continue || info.mountPruned) && emit(record) == Stop {
				return Stop
			}
		}
		return ret
	}

	if err := Walk(&args); err != nil {
		return records, err
	}
	return records, emitErr
}
