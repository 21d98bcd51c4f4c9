package app

import (
	"flag"
	"fmt"
	"io"
)

// Mode selects what the invocation does.
type Mode int

const (
	ModeRun Mode = iota
	ModeVersion
	ModeHistory
)

// Invocation is the parsed command line. CLI values override their
// config counterparts.
type Invocation struct {
	Mode       Mode
	ConfigPath string
	Name       string
	Schedule   string
	Count      int
	History    int
}

// parseArgs parses the command line. A single positional argument is
// accepted as the name to greet.
func parseArgs(args []string, out io.Writer) (Invocation, error) {
	var inv Invocation
	fs := flag.NewFlagSet("greetd", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&inv.ConfigPath, "config", "", "path to config file (json or yaml)")
	fs.StringVar(&inv.Name, "name", "", "name to greet (overrides config)")
	fs.StringVar(&inv.Schedule, "schedule", "", "repeat schedule: cron, HH:MM or duration (overrides config)")
	fs.IntVar(&inv.Count, "count", 0, "stop repeat mode after N deliveries (overrides config)")
	fs.IntVar(&inv.History, "history", 0, "print the last N journaled deliveries and exit")
	version := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return inv, err
	}
	switch {
	case *version:
		inv.Mode = ModeVersion
	case inv.History > 0:
		inv.Mode = ModeHistory
	}
	if fs.NArg() > 1 {
		return inv, fmt.Errorf("at most one name argument, got %d", fs.NArg())
	}
	if n := fs.Arg(0); n != "" && inv.Name == "" {
		inv.Name = n
	}
	return inv, nil
}
