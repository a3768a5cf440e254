package lib

import (
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Config holds defaults for the command-line flags. Flags given explicitly
// win over the file.
type Config struct {
	Strategy string `toml:"strategy"`
	MaxFDs   int    `toml:"max_fds"`
	Format   string `toml:"format"`
	Hash     string `toml:"hash"`
	// Follow is "never", "roots" or "all".
	Follow       string   `toml:"follow"`
	Sort         bool     `toml:"sort"`
	PostOrder    bool     `toml:"post_order"`
	DetectCycles bool     `toml:"detect_cycles"`
	Exclude      []string `toml:"exclude"`
}

// DefaultConfigPath is where the config file is looked for when none is named.
func DefaultConfigPath() string {
	path, err := homedir.Expand("~/.config/treewalk/config.toml")
	if err != nil {
		return ""
	}
	return path
}

// ReadConfig decodes a Config from r.
func ReadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	meta, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown config key %q", undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Strategy != "" {
		if _, ok := ParseStrategy(c.Strategy); !ok {
			return errors.Errorf("unknown strategy %q", c.Strategy)
		}
	}
	if c.Format != "" {
		if _, ok := Format(c.Format); !ok {
			return errors.Errorf("unknown format %q", c.Format)
		}
	}
	if c.Hash != "" {
		if _, err := newHasher(c.Hash); err != nil {
			return err
		}
	}
	switch c.Follow {
	case "", "never", "roots", "all":
	default:
		return errors.Errorf("unknown follow mode %q", c.Follow)
	}
	if c.MaxFDs != 0 && c.MaxFDs < 2 {
		return errors.Errorf("max_fds must be at least 2, got %d", c.MaxFDs)
	}
	return nil
}

// ReadConfigFile reads the config at path, after ~ expansion. An empty path
// means the default location, and a missing default file gives an empty Config.
func ReadConfigFile(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
		if path == "" {
			return &Config{}, nil
		}
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expanding %s", path)
	}
	f, err := os.Open(filepath.Clean(expanded))
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()

	cfg, err := ReadConfig(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config from %s", expanded)
	}
	return cfg, nil
}

const (
	// Descriptors kept back for stdio, logs and the files being hashed.
	reservedFDs = 16
	maxOpenFDs  = 1 << 16
)

// DefaultMaxOpenFDs derives a descriptor budget for a walk from RLIMIT_NOFILE.
func DefaultMaxOpenFDs() int {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return 64
	}
	cur := uint64(limit.Cur)
	n := maxOpenFDs
	if cur < maxOpenFDs+reservedFDs {
		n = int(cur) - reservedFDs
	}
	if n < 2 {
		n = 2
	}
	return n
}
