// Command classinspect loads class descriptions, creates the classes and
// reports how the runtime wired them: linearization, constructor
// strategy, operator sources and operator-cache behaviour.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/typecore/manifest"
	"github.com/chazu/typecore/vm"
	"github.com/chazu/typecore/vm/descwire"
)

type options struct {
	dir       string
	verbosity int
	encode    string
	construct bool
	noCache   bool
	files     []string
}

func main() {
	var o options
	flag.StringVar(&o.dir, "C", ".", "Project directory (searched upwards for typecore.toml)")
	flag.IntVar(&o.verbosity, "v", -2, "Log verbosity (overrides [log] verbosity; -1 disables logging)")
	flag.StringVar(&o.encode, "encode", "", "Write the loaded classes as a CBOR bundle to this file")
	flag.BoolVar(&o.construct, "construct", false, "Default-construct every concrete class and exercise its lifecycle")
	flag.BoolVar(&o.noCache, "no-cache", false, "Disable the operator cache")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: classinspect [options] [class files...]\n\n")
		fmt.Fprintf(os.Stderr, "Loads the classes named by typecore.toml and the given files, then prints\n")
		fmt.Fprintf(os.Stderr, "their layout, constructor strategy and operator sources.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  classinspect                          # Inspect the project in .\n")
		fmt.Fprintf(os.Stderr, "  classinspect shapes.toml -construct   # Inspect one file and build instances\n")
		fmt.Fprintf(os.Stderr, "  classinspect -encode shapes.cbor      # Compile the project's classes\n")
	}
	flag.Parse()
	o.files = flag.Args()

	if err := run(o, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(o options, out io.Writer) error {
	m, err := manifest.FindAndLoad(o.dir)
	if err != nil {
		return err
	}
	if m == nil {
		if len(o.files) == 0 {
			return errors.New("no typecore.toml found and no class files given")
		}
		m = &manifest.Manifest{Dir: o.dir}
	}

	verbosity := m.Log.Verbosity
	if o.verbosity != -2 {
		verbosity = o.verbosity
	}
	var logPath *string
	if p := m.LogPath(); p != "" {
		logPath = &p
	}
	commonlog.Configure(verbosity, logPath)

	opts := m.RuntimeOptions()
	if o.noCache {
		opts.OperatorCache = false
	}
	vm.Configure(opts)

	paths, err := m.ClassFilePaths()
	if err != nil {
		return err
	}
	paths = append(paths, o.files...)
	sources, err := manifest.ReadSources(paths)
	if err != nil {
		return err
	}
	sources, err = manifest.NewResolver(m, nil).Order(sources)
	if err != nil {
		return err
	}

	ct := vm.NewClassTable()
	defer ct.Release()
	syms := manifest.NewSymbols()
	loaded, err := manifest.LoadClasses(ct, m.Project.Namespace, sources, syms.Link)
	if err != nil {
		return err
	}

	for _, l := range loaded {
		describe(out, l)
		if o.construct {
			exercise(out, l.Type)
		}
	}

	s := vm.CollectCacheStats(ct)
	fmt.Fprintf(out, "%d classes; operator cache: %d buckets, %d entries, %d hits, %d misses (%.1f%%)\n",
		ct.Len(), s.Buckets, s.Entries, s.Hits, s.Misses, s.HitRate)

	if o.encode != "" {
		descs, err := manifest.EncodeClasses(loaded, syms.Name)
		if err != nil {
			return err
		}
		data, err := descwire.MarshalBundle(descs)
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.encode, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d classes to %s\n", len(descs), o.encode)
	}
	return nil
}

func describe(out io.Writer, l manifest.Loaded) {
	t := l.Type
	c := t.Class()

	mro := make([]string, len(t.MRO()))
	for i, a := range t.MRO() {
		mro[i] = a.Name
	}
	fmt.Fprintf(out, "class %s (%s)\n", t.Name, l.Source.File)
	fmt.Fprintf(out, "  id:        %s\n", t.ID)
	fmt.Fprintf(out, "  mro:       %s\n", strings.Join(mro, " -> "))
	fmt.Fprintf(out, "  level:     %d\n", c.Level())
	fmt.Fprintf(out, "  strategy:  %s\n", c.Strategy())
	fmt.Fprintf(out, "  members:   %d instance, %d class\n", l.Desc.InstanceMembers, l.Desc.ClassMembers)
	if t.GCPriority != 0 {
		fmt.Fprintf(out, "  gc:        priority %d\n", t.GCPriority)
	}
	for op := vm.OperatorID(0); op.Valid(); op++ {
		src := c.OperatorSource(op)
		if src.Kind == vm.SourceNone {
			continue
		}
		fmt.Fprintf(out, "  %-10s %s\n", op.String()+":", src)
	}
}

// exercise builds a default instance of t, copies it and tears both
// down again, reporting each step.
func exercise(out io.Writer, t *vm.Type) {
	if t.Flags&vm.TypeAbstract != 0 {
		return
	}
	o, err := vm.Construct(t)
	if err != nil {
		fmt.Fprintf(out, "  construct: %v\n", err)
		return
	}
	fmt.Fprintf(out, "  construct: ok\n")
	if c, err := vm.Copy(o); err != nil {
		fmt.Fprintf(out, "  copy:      %v\n", err)
	} else {
		fmt.Fprintf(out, "  copy:      ok\n")
		vm.Decref(c)
	}
	if c, err := vm.DeepCopy(o); err != nil {
		fmt.Fprintf(out, "  deepcopy:  %v\n", err)
	} else {
		fmt.Fprintf(out, "  deepcopy:  ok\n")
		vm.Decref(c)
	}
	vm.Decref(o)
}
