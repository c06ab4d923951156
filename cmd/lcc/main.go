// Command lcc is the kernel code generator CLI.
//
// Usage:
//
//	lcc compile [flags] [sample...]
//	lcc list
//	lcc version
//
// Examples:
//
//	lcc compile saxpy                      # CUDA source to stdout
//	lcc compile -b msl -o build --all      # Every sample as Metal, with manifests
//	lcc compile -c lcgen.toml saxpy        # Options from a config file
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gogpu/lcgen"
	"github.com/gogpu/lcgen/ir"
	"github.com/gogpu/lcgen/samples"
)

const lccVersion = "0.1.0-dev"

var (
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

type compileFlags struct {
	config       string
	backend      string
	output       string
	blockSize    []uint
	noComments   bool
	all          bool
	metalVersion string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lcc [subcommand]",
		Short: "Generate CUDA and Metal source from recorded kernels",
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newCompileCmd(), newListCmd(), newVersionCmd())
	return root
}

func newCompileCmd() *cobra.Command {
	var f compileFlags
	cmd := &cobra.Command{
		Use:   "compile [flags] [sample...]",
		Short: "Compile sample kernels",
		Long: `Compile records the named sample kernels and lowers them with the selected
backend. Without -o or a config file the sources are written to stdout;
otherwise every kernel gets a source file and a YAML manifest in the output
directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, f, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.config, "config", "c", "", "TOML config file")
	flags.StringVarP(&f.backend, "backend", "b", "", "backend: cuda or msl (overrides config)")
	flags.StringVarP(&f.output, "out", "o", "", "output directory (default: stdout)")
	flags.UintSliceVar(&f.blockSize, "block-size", nil, "default block size, e.g. 64,1,1 (overrides config)")
	flags.BoolVar(&f.noComments, "no-comments", false, "drop comment statements")
	flags.BoolVar(&f.all, "all", false, "compile every sample")
	flags.StringVar(&f.metalVersion, "metal-version", "", "Metal language version (overrides config)")
	return cmd
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command, f compileFlags) (lcgen.Config, error) {
	cfg := lcgen.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = lcgen.LoadConfig(f.config); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = f.backend
	}
	if flags.Changed("out") {
		cfg.OutputDir = f.output
	} else if f.config == "" {
		cfg.OutputDir = ""
	}
	if flags.Changed("block-size") {
		cfg.BlockSize = cfg.BlockSize[:0]
		for _, n := range f.blockSize {
			cfg.BlockSize = append(cfg.BlockSize, uint32(n)) //nolint:gosec // G115: validated by LaunchBlockSize
		}
	}
	if f.noComments {
		cfg.EmitComments = false
	}
	if flags.Changed("metal-version") {
		cfg.MetalVersion = f.metalVersion
	}
	return cfg, nil
}

func runCompile(cmd *cobra.Command, f compileFlags, names []string) error {
	if f.all {
		names = samples.Names()
	}
	if len(names) == 0 {
		return errors.New("no sample specified (see lcc list)")
	}
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	bs, err := cfg.LaunchBlockSize()
	if err != nil {
		return err
	}

	arena := ir.NewArena()
	arena.SetDefaultBlockSize(bs)
	handles := make([]ir.FunctionHandle, 0, len(names))
	for _, name := range names {
		rec, ok := samples.Lookup(name)
		if !ok {
			return errors.Errorf("unknown sample %q", name)
		}
		k, err := rec(arena)
		if err != nil {
			return errors.Wrapf(err, "recording %s", name)
		}
		handles = append(handles, k.Handle())
	}

	results, err := lcgen.CompileAll(context.Background(), arena, handles, opts)
	if err != nil {
		return err
	}
	if cfg.OutputDir == "" {
		for _, r := range results {
			if _, err := io.WriteString(cmd.OutOrStdout(), r.Source); err != nil {
				return errors.Wrap(err, "writing output")
			}
		}
		return nil
	}
	paths, err := lcgen.WriteAll(cfg.OutputDir, results)
	if err != nil {
		return err
	}
	for i, r := range results {
		log.Printf("compiled %s (%s) to %s", r.Kernel, r.Backend, paths[i])
	}
	fmt.Fprintln(cmd.ErrOrStderr(), green(fmt.Sprintf("%d kernel(s) written to %s", len(results), cfg.OutputDir)))
	return nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the sample kernels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range samples.Names() {
				rec, _ := samples.Lookup(name)
				k, err := rec(ir.NewArena())
				if err != nil {
					return errors.Wrapf(err, "recording %s", name)
				}
				var notes []string
				if k.RequiresRayTracing() {
					notes = append(notes, "ray tracing")
				}
				if n := len(ir.ReachableCallables(k)); n > 0 {
					notes = append(notes, fmt.Sprintf("%d callable(s)", n))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s  %s\n", name, ir.HashString(k.Hash()), strings.Join(notes, ", "))
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lcc version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lcc version %s\n", lccVersion)
		},
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("lcc: ")
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(1)
	}
}
