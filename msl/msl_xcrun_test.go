//go:build darwin

package msl

import (
	"testing"

	"github.com/gogpu/lcgen/ir"
	"github.com/gogpu/lcgen/samples"
)

func TestMSLCompilesWithXcrun(t *testing.T) {
	for _, name := range samples.Names() {
		t.Run(name, func(t *testing.T) {
			rec, _ := samples.Lookup(name)
			f, err := rec(ir.NewArena())
			if err != nil {
				t.Fatalf("record %s: %v", name, err)
			}
			mslSource, _, err := Compile(f.Arena(), f.Handle(), DefaultOptions())
			if err != nil {
				t.Fatalf("msl.Compile failed: %v", err)
			}
			verifyMSLWithXcrun(t, mslSource)
		})
	}
}
