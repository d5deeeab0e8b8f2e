// Package cli parses miditui's command line: a positional project
// path plus two flags (spec §6).
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Config holds the parsed command line.
type Config struct {
	Path          string // project file to load (.oxm/.json/.mid/.midi); empty if none given
	New           bool   // skip autosave restoration
	SoundFontPath string // preloaded SoundFont, overriding any embedded path
	ShowHelp      bool
}

// ParseArgs parses args (normally os.Args[1:]) into a Config.
func ParseArgs(args []string) (*Config, error) {
	reordered := reorderArgs(args)

	fs := flag.NewFlagSet("miditui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	config := &Config{}
	fs.BoolVar(&config.New, "new", false, "skip autosave restoration and start with an empty project")
	fs.StringVar(&config.SoundFontPath, "soundfont", "", "path to a SoundFont (.sf2/.sf3) to preload")
	fs.BoolVar(&config.ShowHelp, "help", false, "show this help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show this help (shorthand)")

	if err := fs.Parse(reordered); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		config.Path = fs.Arg(0)
	}

	return config, nil
}

// reorderArgs moves flags before positional arguments so flag.FlagSet,
// which stops parsing at the first positional argument, still sees
// every flag regardless of where the user placed PATH.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if !isBooleanFlag(arg) {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
	}
	return append(flags, positional...)
}

func isBooleanFlag(arg string) bool {
	switch strings.TrimLeft(arg, "-") {
	case "new", "help", "h":
		return true
	default:
		return false
	}
}

// PrintHelp writes usage information to stdout, used only for
// --help; all other output goes to stderr per the CLI contract (spec
// §6: "Writes nothing to stdout during normal interactive operation").
func PrintHelp() {
	fmt.Fprint(os.Stdout, `miditui - a terminal-resident DAW

Usage:
  miditui [PATH] [options]

Arguments:
  PATH    project file to open (.oxm, .json, .mid, .midi). If omitted
          and an autosave.oxm exists in the working directory, it is
          restored unless --new is given.

Options:
  --new                 skip autosave restoration; start empty
  --soundfont PATH       preload a SoundFont, overriding any embedded path
  -h, --help             show this help

Examples:
  miditui                        resume the last autosaved session
  miditui song.oxm                open a specific project
  miditui --new --soundfont a.sf2 start empty with a chosen SoundFont
`)
}
