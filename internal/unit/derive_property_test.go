package unit

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func segmentGen() gopter.Gen {
	return gen.RegexMatch(`[a-z][a-z0-9_]{0,7}`)
}

// TestDerivationProperties checks purity and naming invariants over generated trees.
func TestDerivationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	layout, err := NewLayout(t.TempDir(), "src/packages", "temp", "out")
	if err != nil {
		t.Fatal(err)
	}

	properties.Property("derivation is deterministic", prop.ForAll(
		func(dirs []string, file string) bool {
			p := filepath.Join(append(append([]string{layout.SourceRootAbs()}, dirs...), file+".ts")...)
			a, errA := New(layout, p)
			b, errB := New(layout, p)
			if errA != nil || errB != nil {
				return (errA == nil) == (errB == nil)
			}
			return *a == *b
		},
		gen.SliceOfN(3, segmentGen()),
		segmentGen(),
	))

	properties.Property("safe name has no separators and round-trips the name", prop.ForAll(
		func(dirs []string, file string) bool {
			if len(dirs) == 0 {
				return true
			}
			p := filepath.Join(append(append([]string{layout.SourceRootAbs()}, dirs...), file+".ts")...)
			d, err := New(layout, p)
			if err != nil {
				return false
			}
			return !strings.Contains(d.FileSafeName(), "/") &&
				d.FileSafeName() == strings.ReplaceAll(d.Name(), "/", ".") &&
				strings.HasPrefix(d.RollupTarget().Name, "rollup.") &&
				strings.HasSuffix(d.RollupTarget().Name, d.FileSafeName())
		},
		gen.SliceOfN(2, segmentGen()),
		segmentGen(),
	))

	properties.Property("index entries are named after their directory", prop.ForAll(
		func(dirs []string) bool {
			if len(dirs) == 0 {
				return true
			}
			p := filepath.Join(append(append([]string{layout.SourceRootAbs()}, dirs...), "index.ts")...)
			d, err := New(layout, p)
			if err != nil {
				return false
			}
			return d.Name() == strings.Join(dirs, "/")
		},
		gen.SliceOfN(2, segmentGen()),
	))

	properties.TestingRun(t)
}
