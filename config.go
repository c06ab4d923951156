package lcgen

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/gogpu/lcgen/cuda"
	"github.com/gogpu/lcgen/ir"
	"github.com/gogpu/lcgen/msl"
)

// Config is the on-disk configuration of a generation run, usually
// lcgen.toml:
//
//	backend = "msl"
//	block_size = [64, 1, 1]
//	emit_comments = false
//	output_dir = "build/kernels"
//	metal_version = "3.0"
//
// Keys that are absent keep their DefaultConfig values.
type Config struct {
	Backend       string   `toml:"backend"`
	BlockSize     []uint32 `toml:"block_size"`
	EmitComments  bool     `toml:"emit_comments"`
	OutputDir     string   `toml:"output_dir"`
	DeviceLibrary string   `toml:"device_library"`
	MetalVersion  string   `toml:"metal_version"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	bs := ir.DefaultBlockSize
	return Config{
		Backend:       string(BackendCUDA),
		BlockSize:     bs[:],
		EmitComments:  true,
		OutputDir:     ".",
		DeviceLibrary: cuda.DefaultDeviceLibrary,
		MetalVersion:  msl.Version2_4.String(),
	}
}

// LoadConfig reads a TOML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "decoding %s", path)
	}
	return cfg, nil
}

// ParseConfig decodes TOML configuration over DefaultConfig and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Options(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.LaunchBlockSize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LaunchBlockSize returns block_size padded with ones to three dimensions.
func (c Config) LaunchBlockSize() ([3]uint32, error) {
	bs := [3]uint32{1, 1, 1}
	if len(c.BlockSize) == 0 || len(c.BlockSize) > 3 {
		return bs, errors.Errorf("block_size must have 1 to 3 dimensions, got %d", len(c.BlockSize))
	}
	for i, n := range c.BlockSize {
		if n == 0 {
			return bs, errors.Errorf("block_size[%d] is zero", i)
		}
		bs[i] = n
	}
	return bs, nil
}

// Options converts the configuration into compile options.
func (c Config) Options() (Options, error) {
	backend, err := ParseBackend(c.Backend)
	if err != nil {
		return Options{}, err
	}
	version, err := parseMetalVersion(c.MetalVersion)
	if err != nil {
		return Options{}, err
	}
	opts := DefaultOptions()
	opts.Backend = backend
	opts.CUDA.EmitComments = c.EmitComments
	if c.DeviceLibrary != "" {
		opts.CUDA.DeviceLibrary = c.DeviceLibrary
	}
	opts.MSL.EmitComments = c.EmitComments
	opts.MSL.LangVersion = version
	return opts, nil
}

func parseMetalVersion(s string) (msl.Version, error) {
	var v msl.Version
	if _, err := fmt.Sscanf(s, "%d.%d", &v.Major, &v.Minor); err != nil {
		return msl.Version{}, errors.Errorf("invalid metal_version %q", s)
	}
	if v.Less(msl.Version2_1) {
		return msl.Version{}, errors.Errorf("metal_version %s is older than %s", v, msl.Version2_1)
	}
	return v, nil
}
