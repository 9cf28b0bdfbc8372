// package gvmconf loads gvm.toml configuration files.
package gvmconf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"gvm.dev/gvm"
	"gvm.dev/gvm/gvmheap"
	"gvm.dev/gvm/gvmproc"
)

// DefaultFilename is the name of the configuration file looked up by the CLI.
const DefaultFilename = "gvm.toml"

type Config struct {
	Heap   Heap   `toml:"heap"`
	Sched  Sched  `toml:"sched"`
	Server Server `toml:"server"`
}

type Heap struct {
	WordBytes int `toml:"word_bytes"`
	Words     int `toml:"words"`
}

type Sched struct {
	Quantum    int    `toml:"quantum"`
	MaxSteps   uint64 `toml:"max_steps"`
	Trace      bool   `toml:"trace"`
	TraceLimit int    `toml:"trace_limit"`
}

type Server struct {
	Listen string `toml:"listen"`
	// DB is the path of the run history database, empty disables history.
	DB string `toml:"db"`
	// CacheSize is the number of decoded programs kept in memory.
	CacheSize int `toml:"cache_size"`
}

func Default() Config {
	return Config{
		Heap: Heap{
			WordBytes: gvm.DefaultWordBytes,
			Words:     gvm.DefaultHeapWords,
		},
		Sched: Sched{
			Quantum:  gvm.DefaultQuantum,
			MaxSteps: gvm.DefaultMaxSteps,
		},
		Server: Server{
			Listen:    "127.0.0.1:8080",
			CacheSize: 100,
		},
	}
}

// ErrConfig is an invalid configuration.
type ErrConfig struct {
	Path string
	Err  error
}

func (e ErrConfig) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid config: %v", e.Err)
	}
	return fmt.Sprintf("invalid config %s: %v", e.Path, e.Err)
}

func (e ErrConfig) Unwrap() error {
	return e.Err
}

// Parse decodes TOML over the defaults and validates the result.
// Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return Config{}, ErrConfig{Err: err}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, ErrConfig{Err: fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))}
	}
	if err := c.Validate(); err != nil {
		return Config{}, ErrConfig{Err: err}
	}
	return c, nil
}

// Load reads the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c, err := Parse(data)
	if err != nil {
		var cerr ErrConfig
		if errors.As(err, &cerr) {
			cerr.Path = path
			return Config{}, cerr
		}
		return Config{}, err
	}
	return c, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	c, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return c, err
}

func (c Config) Validate() error {
	return errors.Join(
		c.HeapConfig().Validate(),
		c.ProcConfig().Validate(),
		c.Server.validate(),
	)
}

func (s Server) validate() error {
	if s.CacheSize < 1 {
		return fmt.Errorf("server: cache_size must be positive, have %d", s.CacheSize)
	}
	return nil
}

func (c Config) HeapConfig() gvmheap.Config {
	return gvmheap.Config{
		WordBytes: c.Heap.WordBytes,
		Words:     c.Heap.Words,
	}
}

func (c Config) ProcConfig() gvmproc.Config {
	return gvmproc.Config{
		Quantum:    c.Sched.Quantum,
		MaxSteps:   c.Sched.MaxSteps,
		Trace:      c.Sched.Trace,
		TraceLimit: c.Sched.TraceLimit,
	}
}

// Marshal encodes c as TOML.
func Marshal(c Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
