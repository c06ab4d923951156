// Package snapshot_test provides golden snapshot tests for the code
// generators.
//
// Every sample kernel is recorded into a fresh arena and compiled through
// each backend; the output is compared to testdata/golden/{cuda,msl}/.
//
// To regenerate golden files after intentional changes:
//
//	UPDATE_GOLDEN=1 go test ./snapshot/...
package snapshot_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/lcgen"
	"github.com/gogpu/lcgen/ir"
	"github.com/gogpu/lcgen/samples"
)

// TestSnapshots compiles every sample with every backend and compares the
// output with its golden file.
func TestSnapshots(t *testing.T) {
	for _, name := range samples.Names() {
		t.Run(name, func(t *testing.T) {
			for _, backend := range lcgen.Backends() {
				t.Run(string(backend), func(t *testing.T) {
					code := compile(t, name, backend)
					// Variable names come from arena uids, so a fresh arena
					// must reproduce the text exactly.
					if diff := cmp.Diff(code, compile(t, name, backend)); diff != "" {
						t.Fatalf("output depends on more than the recording (-first +second):\n%s", diff)
					}
					compareGolden(t, filepath.Join("testdata", "golden", string(backend), name+backend.Extension()), code)
				})
			}
		})
	}
}

// compile records sample name into a fresh arena and lowers it.
func compile(t *testing.T, name string, backend lcgen.Backend) string {
	t.Helper()
	rec, ok := samples.Lookup(name)
	if !ok {
		t.Fatalf("unknown sample %q", name)
	}
	arena := ir.NewArena()
	f, err := rec(arena)
	if err != nil {
		t.Fatalf("record %s: %v", name, err)
	}
	opts := lcgen.DefaultOptions()
	opts.Backend = backend
	r, err := lcgen.Compile(arena, f.Handle(), opts)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return r.Source
}

// ---------------------------------------------------------------------------
// Golden File Comparison
// ---------------------------------------------------------------------------

// compareGolden compares actual output against a golden file.
// If UPDATE_GOLDEN is set, writes the actual output as the new golden file.
// Kernels without a golden file yet are skipped.
func compareGolden(t *testing.T, path, actual string) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDEN") != "" {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			t.Fatalf("create golden dir: %v", mkErr)
		}
		if wErr := os.WriteFile(path, []byte(actual), 0o644); wErr != nil { //nolint:gosec // golden files are not secret
			t.Fatalf("write golden file: %v", wErr)
		}
		t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Skipf("golden file missing: %s (run with UPDATE_GOLDEN=1 to create)", path)
	}
	if err != nil {
		t.Fatalf("read golden file %s: %v", path, err)
	}

	// Git may convert \n to \r\n on Windows checkout.
	expectedStr := strings.ReplaceAll(string(expected), "\r\n", "\n")
	if diff := cmp.Diff(expectedStr, actual); diff != "" {
		t.Errorf("output differs from golden %s (-golden +actual):\n%s", path, diff)
	}
}
