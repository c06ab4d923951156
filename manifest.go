package lcgen

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/lcgen/ir"
)

// Manifest describes one generated source file to the native compiler
// harness. It is written as YAML next to the source.
type Manifest struct {
	Kernel     string    `yaml:"kernel"`
	Hash       string    `yaml:"hash"`
	Backend    Backend   `yaml:"backend"`
	Source     string    `yaml:"source"`
	EntryPoint string    `yaml:"entry_point"`
	BlockSize  [3]uint32 `yaml:"block_size,flow"`

	// Features lists the pipeline features the kernel needs:
	// ray_tracing, trace_closest, trace_any and ray_query.
	Features []string `yaml:"features,omitempty"`

	// OutlineCount is the number of outlined ray queries (CUDA).
	OutlineCount int `yaml:"outline_count,omitempty"`

	// BuiltinOps lists the built-in operations used (CUDA).
	BuiltinOps []string `yaml:"builtin_ops,omitempty"`

	// Bindings and DispatchSizeSlot describe the argument table (Metal).
	Bindings         []ManifestBinding `yaml:"bindings,omitempty"`
	DispatchSizeSlot *uint32           `yaml:"dispatch_size_slot,omitempty"`
}

// ManifestBinding is one Metal argument slot.
type ManifestBinding struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Index uint32 `yaml:"index"`
}

// NewManifest builds the manifest of r, whose source is stored as source.
func NewManifest(r *Result, source string) Manifest {
	m := Manifest{
		Kernel:  r.Kernel,
		Hash:    ir.HashString(r.Hash),
		Backend: r.Backend,
		Source:  source,
	}
	switch {
	case r.CUDA != nil:
		info := r.CUDA
		m.EntryPoint = info.EntryPoint
		m.BlockSize = info.BlockSize
		m.Features = features(info.RayTracing, info.TraceClosest, info.TraceAny, info.RayQuery)
		m.OutlineCount = info.OutlineCount
		m.BuiltinOps = info.BuiltinOps
	case r.MSL != nil:
		info := r.MSL
		m.EntryPoint = info.EntryPoint
		m.BlockSize = info.BlockSize
		m.Features = features(info.RayTracing, false, false, info.RayQuery)
		for _, b := range info.Bindings {
			m.Bindings = append(m.Bindings, ManifestBinding{Name: b.Name, Kind: b.Kind, Index: b.Index})
		}
		slot := info.DispatchSizeSlot
		m.DispatchSizeSlot = &slot
	}
	return m
}

func features(rt, closest, anyHit, query bool) []string {
	var out []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{rt, "ray_tracing"},
		{closest, "trace_closest"},
		{anyHit, "trace_any"},
		{query, "ray_query"},
	} {
		if f.on {
			out = append(out, f.name)
		}
	}
	return out
}

// Marshal encodes the manifest as YAML.
func (m Manifest) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "encoding manifest")
	}
	return out, nil
}

// kernelFileName matches kernel names usable as file names.
var kernelFileName = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// WriteOutputs stores the source of r and its manifest in dir as
// <kernel><ext> and <kernel>.yaml. It returns the source path.
func WriteOutputs(dir string, r *Result) (string, error) {
	if !kernelFileName.MatchString(r.Kernel) {
		return "", errors.Errorf("kernel name %q is not a valid file name", r.Kernel)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating output directory")
	}
	name := r.Kernel + r.Backend.Extension()
	src := filepath.Join(dir, name)
	if err := os.WriteFile(src, []byte(r.Source), 0o644); err != nil { //nolint:gosec // generated source is not secret
		return "", errors.Wrap(err, "writing source")
	}
	data, err := NewManifest(r, name).Marshal()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, r.Kernel+".yaml"), data, 0o644); err != nil { //nolint:gosec // manifest is not secret
		return "", errors.Wrap(err, "writing manifest")
	}
	return src, nil
}

// WriteAll stores every result with WriteOutputs. Results that would share
// a file are rejected before anything is written.
func WriteAll(dir string, results []*Result) ([]string, error) {
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if !kernelFileName.MatchString(r.Kernel) {
			return nil, errors.Errorf("kernel name %q is not a valid file name", r.Kernel)
		}
		if seen[r.Kernel] {
			return nil, errors.Errorf("two kernels named %q", r.Kernel)
		}
		seen[r.Kernel] = true
	}
	paths := make([]string, 0, len(results))
	for _, r := range results {
		path, err := WriteOutputs(dir, r)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
