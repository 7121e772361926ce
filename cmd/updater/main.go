// updater compiles the property path bindings declared in updater.toml and
// applies recorded frames to a demo scene.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/updater/compiler"
	"github.com/chazu/updater/manifest"
	"github.com/chazu/updater/registry"
	"github.com/chazu/updater/scene"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	dir := flag.String("C", ".", "Project directory (searched upwards for updater.toml)")
	verbosity := flag.Int("v", 0, "Log verbosity (1 info, 2 debug)")
	asJSON := flag.Bool("json", false, "Print JSON instead of text")
	output := flag.String("o", "", "Output file for frame and export")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: updater [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  compile [binding...]               Compile bindings and print their programs\n")
		fmt.Fprintf(os.Stderr, "  hash [-lock]                       Print binding hashes, check or write updater.lock\n")
		fmt.Fprintf(os.Stderr, "  frame <binding> <path=value>...    Encode one frame (CBOR) for a binding\n")
		fmt.Fprintf(os.Stderr, "  run <binding> <frame-file>         Apply a frame to the demo scene and print it\n")
		fmt.Fprintf(os.Stderr, "  export <binding>                   Encode a binding (CBOR) for frame producers\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  updater compile lamp\n")
		fmt.Fprintf(os.Stderr, "  updater -o f.cbor frame lamp 'lamp[scene.Light].Intensity=2.5'\n")
		fmt.Fprintf(os.Stderr, "  updater -json run lamp f.cbor\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		fmt.Fprintf(os.Stderr, "Error: no %s found from %s\n", manifest.FileName, *dir)
		os.Exit(1)
	}

	scene.Register(registry.Default)
	app := &app{
		manifest: m,
		types:    registry.Default,
		cache:    compiler.NewCache(compiler.New(registry.Default)),
		json:     *asJSON,
		output:   *output,
		out:      os.Stdout,
	}

	switch args[0] {
	case "compile":
		err = app.compile(args[1:])
	case "hash":
		err = app.hash(args[1:])
	case "frame":
		err = app.frame(args[1:])
	case "run":
		err = app.run(args[1:])
	case "export":
		err = app.export(args[1:])
	default:
		err = fmt.Errorf("unknown command: %s", args[0])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
