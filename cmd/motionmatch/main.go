// Command motionmatch builds motion corpora, inspects them, and drives the
// blend player offline.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/motion.match/internal/motion"
	"github.com/banshee-data/motion.match/internal/version"
)

var errUsage = errors.New("usage")

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "build":
		err = handleBuild(args, os.Stdout)
	case "inspect":
		err = handleInspect(args, os.Stdout)
	case "simulate":
		err = handleSimulate(args, os.Stdout)
	case "report":
		err = handleReport(args, os.Stdout)
	case "version":
		fmt.Printf("motionmatch %s\n", version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "motionmatch %s: %v\n", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`motionmatch - offline tools for the motion matching core

Usage: motionmatch <command> [options]

Commands:
  build      Build a corpus artifact from a directory of clip JSON files
  inspect    Summarise an artifact or the asset library
  simulate   Drive the blend player along a synthetic path
  report     Render a trajectory PNG and a run timeline
  version    Show version
  help       Show this help message

Common Flags:
  --config <file>   Tuning JSON (default: config/tuning.defaults.json)
  --asset <file>    Corpus artifact
  --db <file>       Asset library (SQLite)
  --id <asset-id>   Asset ID within --db
  --v               Log build and match decisions to stderr
  --trace           Also log per-frame player telemetry

Examples:
  motionmatch build --clips ./clips --out walk.motion --db library.db --name walk
  motionmatch inspect --db library.db
  motionmatch simulate --asset walk.motion --turn 0.5 --seconds 20 --out run.json
  motionmatch report --asset walk.motion --png corpus.png --run run.json --html run.html`)
}

// setupLogging routes the ops stream to stderr always, and the diag and
// trace streams only when asked.
func setupLogging(verbose, trace bool) {
	w := motion.LogWriters{Ops: os.Stderr}
	if verbose || trace {
		w.Diag = os.Stderr
	}
	if trace {
		w.Trace = os.Stderr
	}
	motion.SetLogWriters(w)
}

// commonFlags are shared by every subcommand that loads a corpus.
type commonFlags struct {
	config  string
	asset   string
	db      string
	id      string
	verbose bool
	trace   bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "Tuning JSON file (defaults to config/tuning.defaults.json)")
	fs.StringVar(&c.asset, "asset", "", "Corpus artifact path")
	fs.StringVar(&c.db, "db", "", "Asset library path")
	fs.StringVar(&c.id, "id", "", "Asset ID within the library (latest if empty)")
	fs.BoolVar(&c.verbose, "v", false, "Log build and match decisions")
	fs.BoolVar(&c.trace, "trace", false, "Log per-frame player telemetry")
}

func parseFlags(fs *flag.FlagSet, args []string, out io.Writer) error {
	fs.SetOutput(out)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}
