// avm runs or disassembles an ActionScript 1/2 action buffer.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/avm1/manifest"
	"github.com/chazu/avm1/pkg/bytecode"
	"github.com/chazu/avm1/stage"
	"github.com/chazu/avm1/vm"
)

func main() {
	configPath := flag.String("config", "", "Config file (default: search for avm.toml upward)")
	version := flag.Int("version", 0, "Override the SWF version")
	disasm := flag.Bool("d", false, "Disassemble instead of running")
	verbosity := flag.Int("v", -1, "Log verbosity (default: from config)")
	useCBOR := flag.Bool("cbor", false, "Input is a CBOR container (auto-detected by .cbor extension)")
	profile := flag.Bool("profile", false, "Print opcode counts to stderr after running")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: avm [options] <file>\n\n")
		fmt.Fprintf(os.Stderr, "Runs a raw action buffer on an empty stage, or lists it with -d.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  avm frame1.bin              # Run, trace() output on stdout\n")
		fmt.Fprintf(os.Stderr, "  avm -d -version 5 doa.bin   # Disassemble as SWF5 code\n")
		fmt.Fprintf(os.Stderr, "  avm movie.cbor              # Run a CBOR container\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	if *version > 0 {
		cfg.VM.Version = *version
	}
	configureLogging(cfg.Log)

	buf, err := readBuffer(path, *useCBOR || strings.EqualFold(filepath.Ext(path), ".cbor"), *version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *disasm {
		fmt.Print(buf.DisassembleWith(bytecode.DisasmOptions{Color: isTerminal(os.Stdout)}))
		return
	}

	if err := run(cfg, buf, *profile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*manifest.Config, error) {
	if path != "" {
		return manifest.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = manifest.Default()
	}
	return cfg, nil
}

func configureLogging(lc manifest.LogConfig) {
	if lc.File != "" {
		commonlog.Configure(lc.Verbosity, &lc.File)
		return
	}
	commonlog.Configure(lc.Verbosity, nil)
}

// readBuffer loads path as raw action bytes or as a CBOR container. A
// positive version overrides the one stored in a container.
func readBuffer(path string, container bool, version int) (*bytecode.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	if !container {
		return bytecode.NewBuffer(data, bytecode.WithName(name), bytecode.WithVersion(version)), nil
	}
	buf, err := bytecode.UnmarshalContainer(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if version <= 0 {
		return buf, nil
	}
	opts := []bytecode.BufferOption{bytecode.WithName(nameOr(buf.Name(), name)), bytecode.WithVersion(version)}
	if dict := buf.InitialDictionary(); len(dict) > 0 {
		opts = append(opts, bytecode.WithDictionary(dict))
	}
	return bytecode.NewBuffer(buf.Code(), opts...), nil
}

func nameOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// run places buf on frame 1 of _level0 and drains the scheduler once.
func run(cfg *manifest.Config, buf *bytecode.Buffer, profile bool) error {
	st, err := stage.New(cfg.Options(), os.Stdout)
	if err != nil {
		return err
	}
	if profile {
		prof := vm.NewProfiler()
		st.Interpreter().Profiler = prof
		defer printProfile(prof)
	}
	st.URL = "file://" + buf.Name()
	st.SetFrames(st.Root(), stage.Frame{Actions: []*bytecode.Buffer{buf}})
	st.Start()

	err = st.Run()
	if v, ok := vm.IsUncaught(err); ok {
		return fmt.Errorf("uncaught exception: %s", v.ToString(7))
	}
	return err
}

func printProfile(p *vm.Profiler) {
	fmt.Fprintf(os.Stderr, "%d opcodes dispatched\n", p.TotalOps())
	for _, oc := range p.TopOps(10) {
		fmt.Fprintf(os.Stderr, "  %-16s %d\n", oc.Op, oc.Count)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
